package acs

import (
	_ "embed"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed variables.yaml
var variablesYAML []byte

// Variable describes one ACS detailed-table variable requested per tract.
type Variable struct {
	Code  string `yaml:"code"`
	Label string `yaml:"label"`
	Field string `yaml:"field"`
}

type variableFile struct {
	Variables []Variable `yaml:"variables"`
}

// Variables returns the registry of ACS variables the client requests,
// in request order.
func Variables() ([]Variable, error) {
	var vf variableFile
	if err := yaml.Unmarshal(variablesYAML, &vf); err != nil {
		return nil, eris.Wrap(err, "acs: parse variable registry")
	}
	if len(vf.Variables) == 0 {
		return nil, eris.New("acs: empty variable registry")
	}
	return vf.Variables, nil
}

// VariableCodes returns just the variable codes, in request order.
func VariableCodes() ([]string, error) {
	vars, err := Variables()
	if err != nil {
		return nil, err
	}
	codes := make([]string, len(vars))
	for i, v := range vars {
		codes[i] = v.Code
	}
	return codes, nil
}
