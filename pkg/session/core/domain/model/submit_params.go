package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/hjyangBig2/lighter/pkg/session/support/util/serialization"
)

// SubmitParams is the launch configuration handed to the backend for an application.
type SubmitParams struct {
	Name           string            `json:"name,omitempty" mapstructure:"name"`
	File           string            `json:"file,omitempty" mapstructure:"file"`
	Args           []string          `json:"args,omitempty" mapstructure:"args"`
	PyFiles        []string          `json:"pyFiles,omitempty" mapstructure:"py_files"`
	Files          []string          `json:"files,omitempty" mapstructure:"files"`
	Jars           []string          `json:"jars,omitempty" mapstructure:"jars"`
	Archives       []string          `json:"archives,omitempty" mapstructure:"archives"`
	DriverCores    int               `json:"driverCores,omitempty" mapstructure:"driver_cores"`
	DriverMemory   string            `json:"driverMemory,omitempty" mapstructure:"driver_memory"`
	ExecutorCores  int               `json:"executorCores,omitempty" mapstructure:"executor_cores"`
	ExecutorMemory string            `json:"executorMemory,omitempty" mapstructure:"executor_memory"`
	NumExecutors   int               `json:"numExecutors,omitempty" mapstructure:"num_executors"`
	Conf           map[string]string `json:"conf,omitempty" mapstructure:"conf"`
}

// Clone returns a deep copy.
func (p SubmitParams) Clone() SubmitParams {
	c := p
	c.Args = cloneStrings(p.Args)
	c.PyFiles = cloneStrings(p.PyFiles)
	c.Files = cloneStrings(p.Files)
	c.Jars = cloneStrings(p.Jars)
	c.Archives = cloneStrings(p.Archives)
	if p.Conf != nil {
		c.Conf = make(map[string]string, len(p.Conf))
		for k, v := range p.Conf {
			c.Conf[k] = v
		}
	}
	return c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

// WithName returns a copy with Name replaced.
func (p SubmitParams) WithName(name string) SubmitParams {
	c := p.Clone()
	c.Name = name
	return c
}

// Merge returns a copy in which every unset field of p is taken from defaults.
// Fields already set in p are kept. Conf entries are merged per key with p's keys winning.
func (p SubmitParams) Merge(defaults SubmitParams) SubmitParams {
	c := p.Clone()
	d := defaults.Clone()
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.File == "" {
		c.File = d.File
	}
	if len(c.Args) == 0 {
		c.Args = d.Args
	}
	if len(c.PyFiles) == 0 {
		c.PyFiles = d.PyFiles
	}
	if len(c.Files) == 0 {
		c.Files = d.Files
	}
	if len(c.Jars) == 0 {
		c.Jars = d.Jars
	}
	if len(c.Archives) == 0 {
		c.Archives = d.Archives
	}
	if c.DriverCores == 0 {
		c.DriverCores = d.DriverCores
	}
	if c.DriverMemory == "" {
		c.DriverMemory = d.DriverMemory
	}
	if c.ExecutorCores == 0 {
		c.ExecutorCores = d.ExecutorCores
	}
	if c.ExecutorMemory == "" {
		c.ExecutorMemory = d.ExecutorMemory
	}
	if c.NumExecutors == 0 {
		c.NumExecutors = d.NumExecutors
	}
	if len(d.Conf) > 0 {
		merged := make(map[string]string, len(d.Conf)+len(c.Conf))
		for k, v := range d.Conf {
			merged[k] = v
		}
		for k, v := range c.Conf {
			merged[k] = v
		}
		c.Conf = merged
	}
	return c
}

// String renders the params with sensitive conf values masked.
func (p SubmitParams) String() string {
	return fmt.Sprintf("SubmitParams{name=%s, file=%s, driverCores=%d, driverMemory=%s, executorCores=%d, executorMemory=%s, numExecutors=%d, conf=%v}",
		p.Name, p.File, p.DriverCores, p.DriverMemory, p.ExecutorCores, p.ExecutorMemory, p.NumExecutors, serialization.MaskConf(p.Conf))
}

// Value implements the `driver.Valuer` interface, converting SubmitParams to a JSON string.
func (p SubmitParams) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements the `sql.Scanner` interface, converting a JSON string to SubmitParams.
func (p *SubmitParams) Scan(value interface{}) error {
	*p = SubmitParams{}
	b, err := scanBytes(value, "SubmitParams")
	if err != nil || len(b) == 0 {
		return err
	}
	if err := json.Unmarshal(b, p); err != nil {
		return fmt.Errorf("failed to unmarshal SubmitParams JSON: %w", err)
	}
	return nil
}

func scanBytes(value interface{}, typeName string) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported Scan type for %s: %T", typeName, value)
	}
}
