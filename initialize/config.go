package initialize

import (
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/dongdio/s3mock/global"
	"github.com/dongdio/s3mock/internal/conf"
	"github.com/dongdio/s3mock/utility/utils"
)

// DefaultConfigFileName is the name of the configuration file inside
// global.DataDir.
const DefaultConfigFileName = "config.json"

// PWD returns the program's working directory.
func PWD() string {
	d, err := os.Getwd()
	if err != nil {
		d = "."
	}
	return d
}

// InitConfig loads conf.Conf from global.DataDir/config.json, creating
// a default file on first run, and normalizes the paths it names.
func InitConfig() {
	pwd := PWD()
	if !filepath.IsAbs(global.DataDir) {
		global.DataDir = filepath.Join(pwd, global.DataDir)
	}

	configPath := filepath.Join(global.DataDir, DefaultConfigFileName)
	log.Infof("reading config file: %s", configPath)

	if !utils.Exists(configPath) {
		createDefaultConfig(configPath)
	} else {
		loadExistingConfig(configPath)
	}

	if conf.Conf.Root != "" && !filepath.IsAbs(conf.Conf.Root) {
		conf.Conf.Root = filepath.Join(pwd, conf.Conf.Root)
	}
	if !filepath.IsAbs(conf.Conf.Log.Name) {
		conf.Conf.Log.Name = filepath.Join(pwd, conf.Conf.Log.Name)
	}

	log.Debugf("config: %+v", conf.Conf)
}

func createDefaultConfig(configPath string) {
	log.Info("config file does not exist, creating default config file")

	if _, err := utils.CreateNestedFile(configPath); err != nil {
		log.Fatalf("failed to create config file: %v", err)
	}

	conf.Conf = conf.DefaultConfig()
	if !utils.WriteJsonToFile(configPath, conf.Conf) {
		log.Fatal("failed to write default config file")
	}
}

func loadExistingConfig(configPath string) {
	configBytes, err := os.ReadFile(configPath)
	if err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}

	conf.Conf = conf.DefaultConfig()
	if err = utils.Json.Unmarshal(configBytes, conf.Conf); err != nil {
		log.Fatalf("failed to parse config file: %v", err)
	}

	updateConfigFile(configPath)
}

func updateConfigFile(configPath string) {
	body, err := utils.Json.MarshalIndent(conf.Conf, "", "  ")
	if err != nil {
		log.Fatalf("failed to marshal config: %v", err)
	}
	if err = os.WriteFile(configPath, body, 0o644); err != nil {
		log.Fatalf("failed to update config file: %v", err)
	}
}
