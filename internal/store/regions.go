package store

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/AmineChr54/Ai-for-global-healthcare-access-sub000/internal/facility"
)

type regionsFile struct {
	Regions []facility.Region `yaml:"regions"`
}

// LoadRegions reads region overrides from YAML:
//
//	regions:
//	  - name: Northern
//	    center: {lat: 9.5, lon: -1.0}
//	    population: 2310939
func LoadRegions(path string) ([]facility.Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "store: read regions %s", path)
	}
	var f regionsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "store: decode regions %s", path)
	}
	for i, r := range f.Regions {
		if r.Name == "" {
			return nil, eris.Errorf("store: region %d in %s has no name", i, path)
		}
		if r.Population < 0 {
			return nil, eris.Errorf("store: region %q has negative population", r.Name)
		}
	}
	return f.Regions, nil
}

// RegionTable merges overrides from path, if set, onto the built-in table.
func RegionTable(path string) (*facility.Table, error) {
	if path == "" {
		return facility.Default(), nil
	}
	overrides, err := LoadRegions(path)
	if err != nil {
		return nil, err
	}
	return facility.Merge(facility.DefaultRegions(), overrides), nil
}
