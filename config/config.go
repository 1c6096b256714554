package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"

	"github.com/lumelink/lumelink/bridge"
	"github.com/lumelink/lumelink/estimator"
	"github.com/lumelink/lumelink/log"
	"github.com/lumelink/lumelink/poller"
	"github.com/lumelink/lumelink/store"
)

const (
	// FlagCfg is the flag for cfg.
	FlagCfg = "cfg"
	// FlagAmount is the flag for amount.
	FlagAmount = "amount"
	// FlagTx is the flag for the source transaction id to resume.
	FlagTx = "tx"

	// EnvVarPrefix is the prefix for env vars overriding config values,
	// example: LUMELINK_BRIDGE_TIMEOUT="10m"
	EnvVarPrefix = "LUMELINK"
	// ConfigType of the config files
	ConfigType = "toml"
)

// SourceLedgerConfig configures access to the source ledger gateway.
type SourceLedgerConfig struct {
	// GatewayURL of the payment gateway holding the source ledger wallet.
	GatewayURL string `mapstructure:"GatewayURL"`
}

// DestinationChainConfig configures access to the destination chain.
type DestinationChainConfig struct {
	// URL of the destination chain RPC provider.
	URL string `mapstructure:"URL"`
	// OperatorContract is the address emitting the bridge events.
	OperatorContract common.Address `mapstructure:"OperatorContract"`
}

// Config of the whole engine. All values are resolved at load time, the
// components receive their section explicitly at construction.
type Config struct {
	// Log level and format for all components
	Log log.Config
	// SourceLedger gateway access
	SourceLedger SourceLedgerConfig
	// DestinationChain RPC access
	DestinationChain DestinationChainConfig
	// Estimator maps source timestamps to destination positions
	Estimator estimator.Config
	// Poller scans the destination chain for bridge events
	Poller poller.Config
	// Bridge orchestration (timeout budget)
	Bridge bridge.Config
	// Store keeps the in-flight bridge requests
	Store store.Config
}

// Load loads the configuration: embedded defaults, overridden by the file
// given through the cfg flag (if any), overridden by env vars.
func Load(cliCtx *cli.Context) (*Config, error) {
	filesData := []FileData{{Name: "default_values", Content: DefaultValues}}
	if configFilePath := cliCtx.String(FlagCfg); configFilePath != "" {
		content, err := os.ReadFile(configFilePath)
		if err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFilePath, err)
		}
		filesData = append(filesData, FileData{Name: configFilePath, Content: string(content)})
	}
	merged, err := Merge(filesData)
	if err != nil {
		return nil, err
	}
	return LoadFromString(merged, ConfigType)
}

// LoadFromString loads the configuration from the given string.
func LoadFromString(configData string, configType string) (*Config, error) {
	cfg := &Config{}
	err := loadString(cfg, configData, configType, true, EnvVarPrefix)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadString(cfg *Config, configData string, configType string,
	allowEnvVars bool, envPrefix string) error {
	viper.SetConfigType(configType)
	if allowEnvVars {
		replacer := strings.NewReplacer(".", "_")
		viper.SetEnvKeyReplacer(replacer)
		viper.SetEnvPrefix(envPrefix)
		viper.AutomaticEnv()
	}
	err := viper.ReadConfig(bytes.NewBuffer([]byte(configData)))
	if err != nil {
		return err
	}
	decodeHooks := []viper.DecoderConfigOption{
		// this allows arrays to be decoded from env var separated by ",", example: MY_VAR="value1,value2,value3"
		viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(), mapstructure.StringToSliceHookFunc(","))),
	}
	return viper.Unmarshal(&cfg, decodeHooks...)
}
