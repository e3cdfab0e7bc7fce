package config

import (
	"os"
	"path"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix starts every environment override, e.g. PLANTCATALOG_WEB_PORT
const EnvPrefix = "PLANTCATALOG_"

// SysConfig system config
type SysConfig struct {
	Appid    string `yaml:"appid" mapstructure:"appid"`
	Location string `yaml:"location" mapstructure:"location"`
	Workdir  string `yaml:"workdir" mapstructure:"workdir"`
	Debug    bool   `yaml:"debug" mapstructure:"debug"`
}

// WebConfig api server config
type WebConfig struct {
	Host        string   `yaml:"host" mapstructure:"host"`
	Port        int      `yaml:"port" mapstructure:"port"`
	CorsOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// DBConfig database config, used by the gorm storage driver
type DBConfig struct {
	Type     string `yaml:"type" mapstructure:"type"` // postgres or sqlite
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Name     string `yaml:"name" mapstructure:"name"`
	User     string `yaml:"user" mapstructure:"user"`
	Passwd   string `yaml:"passwd" mapstructure:"passwd"`
	MaxConn  int    `yaml:"max_conn" mapstructure:"max_conn"`
	IdleConn int    `yaml:"idle_conn" mapstructure:"idle_conn"`
	Debug    bool   `yaml:"debug" mapstructure:"debug"`
}

// StorageConfig selects and tunes the document store
type StorageConfig struct {
	Driver     string `yaml:"driver" mapstructure:"driver"` // bolt, gorm or memory
	BoltFile   string `yaml:"bolt_file" mapstructure:"bolt_file"`
	NodeID     int64  `yaml:"node_id" mapstructure:"node_id"`
	BackupCron string `yaml:"backup_cron" mapstructure:"backup_cron"`
	BackupKeep int    `yaml:"backup_keep" mapstructure:"backup_keep"`
}

// LogConfig logging config
type LogConfig struct {
	Mode       string `yaml:"mode" mapstructure:"mode"`
	FileEnable bool   `yaml:"file_enable" mapstructure:"file_enable"`
	Filename   string `yaml:"filename" mapstructure:"filename"`
}

// CatalogConfig catalog behaviour
type CatalogConfig struct {
	SeedOnEmpty bool `yaml:"seed_on_empty" mapstructure:"seed_on_empty"`
}

type AppConfig struct {
	System   SysConfig     `yaml:"system" mapstructure:"system"`
	Web      WebConfig     `yaml:"web" mapstructure:"web"`
	Database DBConfig      `yaml:"database" mapstructure:"database"`
	Storage  StorageConfig `yaml:"storage" mapstructure:"storage"`
	Logger   LogConfig     `yaml:"logger" mapstructure:"logger"`
	Catalog  CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetBackupDir() string {
	return path.Join(c.System.Workdir, "backup")
}

// BoltPath resolves the bbolt file, relative names live in the data dir
func (c *AppConfig) BoltPath() string {
	if path.IsAbs(c.Storage.BoltFile) {
		return c.Storage.BoltFile
	}
	return path.Join(c.GetDataDir(), c.Storage.BoltFile)
}

func (c *AppConfig) initDirs() error {
	for _, dir := range []string{c.GetDataDir(), c.GetLogDir(), c.GetBackupDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	return nil
}

// DefaultAppConfig returns the built-in settings
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Appid:    "PlantCatalog",
			Location: "Asia/Kolkata",
			Workdir:  "/var/plantcatalog",
			Debug:    false,
		},
		Web: WebConfig{
			Host:        "0.0.0.0",
			Port:        1816,
			CorsOrigins: []string{"*"},
		},
		Database: DBConfig{
			Type:     "sqlite",
			Host:     "127.0.0.1",
			Port:     5432,
			Name:     "plantcatalog.db",
			User:     "postgres",
			Passwd:   "",
			MaxConn:  50,
			IdleConn: 10,
		},
		Storage: StorageConfig{
			Driver:     "bolt",
			BoltFile:   "plants.db",
			NodeID:     1,
			BackupCron: "0 30 2 * * *",
			BackupKeep: 7,
		},
		Logger: LogConfig{
			Mode:       "development",
			FileEnable: false,
			Filename:   "/var/plantcatalog/logs/plantd.log",
		},
		Catalog: CatalogConfig{
			SeedOnEmpty: true,
		},
	}
}

// LoadConfig reads the yaml file when it exists, then applies .env and
// PLANTCATALOG_<SECTION>_<KEY> overrides on top of it
func LoadConfig(cfile string) (*AppConfig, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := DefaultAppConfig()
	if cfile == "" {
		cfile = "plantd.yml"
	}
	if data, err := os.ReadFile(cfile); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse %s", cfile)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "read %s", cfile)
	}

	if err := ApplyEnv(cfg, os.Environ()); err != nil {
		return nil, err
	}
	if err := cfg.initDirs(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with PLANTCATALOG_ variables from env (KEY=VALUE
// pairs). Values are converted to the field type.
func ApplyEnv(cfg *AppConfig, env []string) error {
	sections := map[string]map[string]interface{}{}
	for _, kv := range env {
		key, value, found := strings.Cut(kv, "=")
		if !found || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		section, field, found := strings.Cut(strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), "_")
		if !found || field == "" {
			continue
		}
		if sections[section] == nil {
			sections[section] = map[string]interface{}{}
		}
		sections[section][field] = value
	}
	if len(sections) == 0 {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	input := make(map[string]interface{}, len(sections))
	for k, v := range sections {
		input[k] = v
	}
	if err := decoder.Decode(input); err != nil {
		return errors.Wrap(err, "environment override")
	}
	return nil
}
