//go:build !wasm
// +build !wasm

// Package gorm provides GORM-based implementations of the stackauth
// UserStore and ChannelStore interfaces.  It supports any database that GORM
// supports (PostgreSQL, MySQL, SQLite, etc.)
//
// # Database Schema
//
// The package auto-migrates the following tables:
//   - users: User accounts
//   - channels: Stack Exchange accounts linked to users
//
// # Usage
//
//	db, _ := gorm.Open(postgres.Open(dsn), &gorm.Config{})
//	gormstore.AutoMigrate(db)
//	verify := stores.ChannelVerifier(gormstore.NewUserStore(db), gormstore.NewChannelStore(db))
package gorm
