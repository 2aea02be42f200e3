// File: internal/truthpack/truthpack.go
// Description: Loads the project's ground-truth data (routes, environment
// variables, auth model, contracts) from its fixed on-disk layout.
package truthpack

import (
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/remedy-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Dir is the fixed directory, relative to the project root, that holds the
// truthpack files.
const Dir = ".truthpack"

// File names inside Dir. Routes and env are JSON; the auth model and
// contract list are YAML, matching how teams author them by hand.
const (
	routesFile    = "routes.json"
	envFile       = "env.json"
	authFile      = "auth.yaml"
	contractsFile = "contracts.yaml"
	metadataFile  = "metadata.json"
)

// Load reads the truthpack from root. Missing files (or the whole directory)
// are normal for projects that ship no ground truth and yield empty sections;
// a file that exists but cannot be parsed is an error, because acting on a
// half-read truthpack is worse than acting on none.
func Load(root string, logger *zap.Logger) (*schemas.Truthpack, error) {
	log := logger.Named("truthpack")
	dir := filepath.Join(root, Dir)

	pack := &schemas.Truthpack{}

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		log.Debug("No truthpack directory; continuing without ground truth.", zap.String("dir", dir))
		return pack, nil
	}

	if err := loadJSON(filepath.Join(dir, routesFile), &pack.Routes); err != nil {
		return nil, fmt.Errorf("loading %s: %w", routesFile, err)
	}
	if err := loadJSON(filepath.Join(dir, envFile), &pack.Env); err != nil {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}
	if err := loadYAML(filepath.Join(dir, authFile), &pack.Auth); err != nil {
		return nil, fmt.Errorf("loading %s: %w", authFile, err)
	}
	if err := loadYAML(filepath.Join(dir, contractsFile), &pack.Contracts); err != nil {
		return nil, fmt.Errorf("loading %s: %w", contractsFile, err)
	}
	if err := loadJSON(filepath.Join(dir, metadataFile), &pack.Metadata); err != nil {
		return nil, fmt.Errorf("loading %s: %w", metadataFile, err)
	}

	log.Info("Truthpack loaded.",
		zap.Int("routes", len(pack.Routes)),
		zap.Int("env_vars", len(pack.Env)),
		zap.Int("contracts", len(pack.Contracts)))
	return pack, nil
}

func loadJSON(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, target)
}

func loadYAML(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, target)
}
