// The staticlint command combines the analyzers from the Go toolchain, third-party
// analyzers and the bookshelf-specific ones into a single multichecker.
//
// The staticcheck analyzers to enable are listed in config.json next to the binary.
// Without the file every SA analyzer is enabled.
package main

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gordonklaus/ineffassign/pkg/ineffassign"
	"github.com/gostaticanalysis/nilerr"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/httpresponse"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"
	"honnef.co/go/tools/staticcheck"

	"github.com/patric-chuzhbe/bookshelf/cmd/staticlint/noosexit"
	"github.com/patric-chuzhbe/bookshelf/cmd/staticlint/nopasswordlog"
)

// Config is the name of the JSON file listing the enabled staticcheck analyzers.
const Config = `config.json`

// ConfigData describes the configuration file.
// Staticcheck holds analyzer names such as "SA1000" or "SA4010".
type ConfigData struct {
	Staticcheck []string
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal(err)
	}

	myChecks := []*analysis.Analyzer{
		copylock.Analyzer,
		httpresponse.Analyzer,
		loopclosure.Analyzer,
		lostcancel.Analyzer,
		printf.Analyzer,
		structtag.Analyzer,
		unmarshal.Analyzer,
		unreachable.Analyzer,

		ineffassign.Analyzer,
		nilerr.Analyzer,

		noosexit.Analyzer,
		nopasswordlog.Analyzer,
	}

	myChecks = append(myChecks, staticcheckAnalyzers(cfg)...)

	multichecker.Main(myChecks...)
}

func loadConfig() (*ConfigData, error) {
	appfile, err := os.Executable()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(filepath.Dir(appfile), Config))
	if errors.Is(err, fs.ErrNotExist) {
		return &ConfigData{}, nil
	}
	if err != nil {
		return nil, err
	}

	var cfg ConfigData
	if err = json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func staticcheckAnalyzers(cfg *ConfigData) []*analysis.Analyzer {
	checks := make(map[string]bool)
	for _, name := range cfg.Staticcheck {
		checks[name] = true
	}

	var result []*analysis.Analyzer
	for _, v := range staticcheck.Analyzers {
		name := v.Analyzer.Name
		if checks[name] || (len(checks) == 0 && strings.HasPrefix(name, "SA")) {
			result = append(result, v.Analyzer)
		}
	}

	return result
}
