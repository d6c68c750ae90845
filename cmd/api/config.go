package main

import (
	"encoding/json"
	"os"

	"github.com/omeid/uconfig"
)

// configFilename is the filename of the config file automatically loaded.
var configFilename = "config.json"

type config struct {
	HTTP struct {
		Port string `default:"8080"` // HTTP port (e.g. 8080)
	}
	Gateway struct {
		EthEndpoint string `default:"http://localhost:8545"`
		ChainID     int64  `default:"1337"`
	}
	Signer struct {
		PrivateKey string `default:""`
	}
	Payout struct {
		CustodyAddress string `default:""`
		AmountWei      string `default:"10000000000000000"` // 0.01 eth
		GasLimit       uint64 `default:"21000"`
	}
	Watcher struct {
		CheckInterval string `default:"5s"`
	}
	Reconciler struct {
		Interval      string `default:"5m"`
		StuckInterval string `default:"10m"`
	}
	Balance struct {
		CheckInterval string `default:"1m"`
	}
	Metrics struct {
		Port string `default:"9090"`
	}
	Log struct {
		Human bool `default:"false"`
		Debug bool `default:"false"`
	}
}

func setupConfig() *config {
	conf := &config{}
	confFiles := uconfig.Files{}
	if _, err := os.Stat(configFilename); err == nil {
		confFiles = uconfig.Files{{configFilename, json.Unmarshal}}
	}

	c, err := uconfig.Classic(&conf, confFiles)
	if err != nil {
		c.Usage()
		os.Exit(1)
	}

	return conf
}
