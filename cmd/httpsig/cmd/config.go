package cmd

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/vitalvas/httpsig/httpsig"
	"gopkg.in/yaml.v3"
)

const defaultListen = ":8080"

var (
	errUnknownKey     = errors.New("unknown key")
	errAlgorithmPin   = errors.New("algorithm not allowed for key")
	errNoKeyMaterial  = errors.New("key has no secret, public_key or private_key")
	errDuplicateKeyID = errors.New("duplicate key id")
)

// KeyConfig describes one entry of the keyring. PEM paths are resolved
// relative to the config file.
type KeyConfig struct {
	ID         string `yaml:"id"`
	Algorithm  string `yaml:"algorithm,omitempty"`
	Secret     string `yaml:"secret,omitempty"`
	PublicKey  string `yaml:"public_key,omitempty"`
	PrivateKey string `yaml:"private_key,omitempty"`
}

// Config is the httpsig CLI configuration file.
type Config struct {
	Keys []KeyConfig `yaml:"keys"`

	RequiredHeaders []string `yaml:"required_headers,omitempty"`
	SignHeader      string   `yaml:"sign_header,omitempty"`
	Scheme          string   `yaml:"scheme,omitempty"`
	StrictScheme    bool     `yaml:"strict_scheme,omitempty"`

	// HS2019 selects the primitive behind hs2019. Only "pss" is known.
	HS2019 string `yaml:"hs2019,omitempty"`

	// SignHeaders is the default list of headers covered by "sign".
	SignHeaders []string `yaml:"sign_headers,omitempty"`
	Digest      string   `yaml:"digest,omitempty"`

	Listen        string `yaml:"listen,omitempty"`
	RequireDigest bool   `yaml:"require_digest,omitempty"`

	dir string
}

// LoadConfig reads and validates the YAML config at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := parseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.dir = filepath.Dir(path)

	return cfg, nil
}

func parseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Listen == "" {
		cfg.Listen = defaultListen
	}

	seen := make(map[string]struct{}, len(cfg.Keys))
	for _, k := range cfg.Keys {
		if k.ID == "" {
			return nil, errors.New("key id must not be empty")
		}

		if _, ok := seen[k.ID]; ok {
			return nil, fmt.Errorf("%w: %s", errDuplicateKeyID, k.ID)
		}
		seen[k.ID] = struct{}{}

		if k.Secret == "" && k.PublicKey == "" && k.PrivateKey == "" {
			return nil, fmt.Errorf("%w: %s", errNoKeyMaterial, k.ID)
		}
	}

	if _, err := cfg.signAlgorithm(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// signAlgorithm returns the hs2019 primitive, or nil when none is
// configured.
func (c *Config) signAlgorithm() (httpsig.SignAlgorithm, error) {
	switch strings.ToLower(c.HS2019) {
	case "":
		return nil, nil
	case "pss":
		return httpsig.PSS{}, nil
	default:
		return nil, fmt.Errorf("unknown hs2019 primitive %q", c.HS2019)
	}
}

func (c *Config) path(p string) string {
	if p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p
	}

	return filepath.Join(c.dir, p)
}

type keyEntry struct {
	cfg     KeyConfig
	secret  []byte
	public  *rsa.PublicKey
	private *rsa.PrivateKey
}

// keyring holds loaded key material indexed by key ID.
type keyring struct {
	keys map[string]*keyEntry
}

func newKeyring(cfg *Config) (*keyring, error) {
	ring := &keyring{keys: make(map[string]*keyEntry, len(cfg.Keys))}

	for _, k := range cfg.Keys {
		entry := &keyEntry{cfg: k}

		if k.Secret != "" {
			entry.secret = []byte(k.Secret)
		}

		if k.PrivateKey != "" {
			data, err := os.ReadFile(cfg.path(k.PrivateKey))
			if err != nil {
				return nil, fmt.Errorf("key %s: %w", k.ID, err)
			}

			entry.private, err = httpsig.ParsePrivateKeyPEM(data)
			if err != nil {
				return nil, fmt.Errorf("key %s: %w", k.ID, err)
			}

			entry.public = &entry.private.PublicKey
		}

		if k.PublicKey != "" {
			data, err := os.ReadFile(cfg.path(k.PublicKey))
			if err != nil {
				return nil, fmt.Errorf("key %s: %w", k.ID, err)
			}

			entry.public, err = httpsig.ParsePublicKeyPEM(data)
			if err != nil {
				return nil, fmt.Errorf("key %s: %w", k.ID, err)
			}
		}

		ring.keys[k.ID] = entry
	}

	return ring, nil
}

// resolve implements httpsig.SecretResolver. A key with a configured
// algorithm only verifies signatures declaring that algorithm.
func (k *keyring) resolve(_ *http.Request, keyID string, alg httpsig.Algorithm) (any, error) {
	entry, ok := k.keys[keyID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownKey, keyID)
	}

	if entry.cfg.Algorithm != "" && !strings.EqualFold(entry.cfg.Algorithm, alg.String()) {
		return nil, fmt.Errorf("%w: %s declares %s", errAlgorithmPin, keyID, alg)
	}

	if isHMAC(alg) {
		if entry.secret == nil {
			return nil, fmt.Errorf("%w: %s has no shared secret", httpsig.ErrInvalidKey, keyID)
		}

		return entry.secret, nil
	}

	if entry.public == nil {
		return nil, fmt.Errorf("%w: %s has no public key", httpsig.ErrInvalidKey, keyID)
	}

	return entry.public, nil
}

// signer builds a Signer for keyID using the key's configured algorithm.
func (k *keyring) signer(keyID string) (httpsig.Signer, error) {
	entry, ok := k.keys[keyID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownKey, keyID)
	}

	alg := httpsig.Algorithm(strings.ToLower(entry.cfg.Algorithm))

	switch {
	case alg == "":
		return nil, fmt.Errorf("key %s: algorithm is required for signing", keyID)
	case isHMAC(alg):
		return httpsig.NewHMACSigner(keyID, alg, entry.secret)
	case alg == httpsig.AlgorithmHS2019:
		return httpsig.NewPSSSigner(keyID, entry.private)
	default:
		return httpsig.NewRSASigner(keyID, alg, entry.private)
	}
}

func isHMAC(alg httpsig.Algorithm) bool {
	return strings.HasPrefix(strings.ToLower(alg.String()), "hmac-")
}
