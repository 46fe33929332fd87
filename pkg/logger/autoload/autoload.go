// Package autoload initializes the global logger from the environment on
// import, mirroring the blank-import pattern used in main.
package autoload

import (
	logx "github.com/quillon/intake-orchestrator/pkg/logger"

	"github.com/kelseyhightower/envconfig"
)

func init() {
	var conf logx.Config
	if err := envconfig.Process("LOG", &conf); err != nil {
		conf = logx.Config{}
	}
	logx.Init(conf)
}
