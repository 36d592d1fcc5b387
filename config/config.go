package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ReadYAML decodes a YAML file on top of v, so fields absent from the
// file keep the values v already holds. Environment variables referenced
// as $VAR or ${VAR} are expanded first, and unknown keys are rejected.
// An empty file leaves v untouched.
func ReadYAML(file string, v interface{}) error {
	b, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("error reading yaml config file: %w", err)
	}
	return DecodeYAML(b, v)
}

// DecodeYAML is ReadYAML for in-memory documents.
func DecodeYAML(b []byte, v interface{}) error {
	dec := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(b)))))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("error decoding config from yaml: %w", err)
	}
	return nil
}
