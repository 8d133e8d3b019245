// Package config provides configuration loading for HUD Informer.
//
// Configuration comes from three layers, later layers winning:
//
//  1. Built-in defaults (defaultConfig)
//  2. YAML file (configs/config.yaml)
//  3. Environment variables (INFORMER_* plus the add-on-native
//     SUPERVISOR_TOKEN and OPENAI_API_KEY)
//
// The environment layer exists because Home Assistant add-on options are
// handed to the process as environment variables by run.sh; the YAML layer
// exists so the daemon can also run standalone during development.
//
// All durations in the YAML are plain integer seconds; use the GetXxxTimeout
// helpers to obtain time.Duration values.
package config
