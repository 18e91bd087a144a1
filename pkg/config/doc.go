// Package config loads struct configuration from environment variables
// and an optional .env file. Component packages define their own Config
// structs with env/envDefault tags; this package only does the loading.
package config
