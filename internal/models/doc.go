// Package models lists the translation models a backend offers, so users
// can pick a value for --model.
package models
