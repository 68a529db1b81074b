// Package store persists workflow definitions and run results through
// GORM. SQLite, MySQL, and PostgreSQL are supported; the driver is
// selected by configuration.
package store
