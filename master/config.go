package master

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ModeName is the string form of the seven coordination modes accepted in
// Config.Mode.
type ModeName string

const (
	ModeBSP ModeName = "bsp"
	ModeTAP ModeName = "tap"
	ModeSSP ModeName = "ssp"
	ModeSAP ModeName = "sap"
	ModeFSP ModeName = "fsp"
	ModeAAP ModeName = "aap"
	ModePAP ModeName = "pap"
)

// OptimizerConfig configures the (out-of-scope) worker-side optimizer. The
// master loads these fields but neither reads nor forwards them to workers.
type OptimizerConfig struct {
	Name   string             `yaml:"name"`
	Params map[string]float64 `yaml:"params"`
}

// AlgorithmConfig configures the (out-of-scope) training algorithm.
type AlgorithmConfig struct {
	Name   string             `yaml:"name"`
	Params map[string]float64 `yaml:"params"`
}

// Config is the full configuration surface of spec.md §6, loaded from
// YAML via gopkg.in/yaml.v3, matching the teacher pack's config-loading
// convention.
type Config struct {
	NW         int      `yaml:"nw"`
	BatchSize  int      `yaml:"batchSize"`
	ReportSize int      `yaml:"reportSize"`
	Mode       ModeName `yaml:"mode"`

	TCIter int64   `yaml:"tcIter"`
	TCTime float64 `yaml:"tcTime"`

	ArvIter int64   `yaml:"arvIter"`
	ArvTime float64 `yaml:"arvTime"`

	LogIter  int64  `yaml:"logIter"`
	FnOutput string `yaml:"fnOutput"`
	Binary   bool   `yaml:"binary"`
	Resume   bool   `yaml:"resume"`
	Seed     int64  `yaml:"seed"`

	Optimizer OptimizerConfig `yaml:"optimizer"`
	Algorithm AlgorithmConfig `yaml:"algorithm"`

	// Mode-specific.
	IntervalParam       float64 `yaml:"intervalParam"`
	MinInterval         float64 `yaml:"minInterval"`
	MaxInterval         float64 `yaml:"maxInterval"`
	McastParam          int     `yaml:"mcastParam"`
	AapWait             bool    `yaml:"aapWait"`
	PapSearchBatchSize  bool    `yaml:"papSearchBatchSize"`
	PapSearchReportFreq int64   `yaml:"papSearchReportFreq"`
	PapDynamicBatchSize bool    `yaml:"papDynamicBatchSize"`
	ProbeRatio          float64 `yaml:"probeRatio"`

	// DispatchPoolSize sizes master.dispatchPool; defaults to 8 when unset.
	DispatchPoolSize int `yaml:"dispatchPoolSize"`

	// MetricsAddr, if non-empty, is the listen address for the Prometheus
	// /metrics HTTP endpoint.
	MetricsAddr string `yaml:"metricsAddr"`
}

// LoadConfig reads and parses a YAML config file, applying defaults for
// unset fields that must be positive to avoid a divide-by-zero later.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %q", path)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %q", path)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DispatchPoolSize <= 0 {
		c.DispatchPoolSize = 8
	}
	if c.MinInterval <= 0 {
		c.MinInterval = 0.001
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 10
	}
	if c.McastParam <= 0 {
		c.McastParam = 2
	}
	if c.ProbeRatio <= 0 {
		c.ProbeRatio = 0.1
	}
}

// Validate rejects a config that cannot possibly produce a runnable
// orchestrator, per spec.md §7's "fatal misconfiguration" error kind.
func (c *Config) Validate() error {
	if c.NW <= 0 {
		return errors.New("config: nw must be positive")
	}
	switch c.Mode {
	case ModeBSP, ModeTAP, ModeSSP, ModeSAP, ModeFSP, ModeAAP, ModePAP:
	default:
		return errors.Errorf("config: unknown mode %q", c.Mode)
	}
	if c.BatchSize <= 0 && c.Mode == ModePAP {
		return errors.New("config: pap requires a positive batchSize (initial global batch size)")
	}
	if c.Resume && !c.Binary {
		return errors.New("config: resume requires binary=true (archiver.Resume seeks fixed-width binary records)")
	}
	return nil
}
