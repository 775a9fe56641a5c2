// Package config loads env-tagged structs from the environment, optionally
// seeded from dotenv files.
package config
