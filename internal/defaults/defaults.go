// Package defaults provides the embedded default configuration written
// by the helio init subcommand.
package defaults

import _ "embed"

//go:generate cp ../../examples/config.example.yaml .

//go:embed config.example.yaml
var ConfigYAML []byte
