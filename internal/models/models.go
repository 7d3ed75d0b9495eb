// Package models defines data structures used throughout the math learning application.
package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// User represents a user in the system
type User struct {
	ID           int            `json:"id" yaml:"id"`
	Username     string         `json:"username" yaml:"username"`
	Email        sql.NullString `json:"email" yaml:"email"`
	PasswordHash sql.NullString `json:"-" yaml:"-"` // Omit from JSON responses
	Timezone     sql.NullString `json:"timezone" yaml:"timezone"`
	LastActive   sql.NullTime   `json:"last_active" yaml:"last_active"`
	Premium      bool           `json:"premium" yaml:"premium"`
	PremiumSince sql.NullTime   `json:"premium_since" yaml:"premium_since"`
	CreatedAt    time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" yaml:"updated_at"`
	Roles        []Role         `json:"roles,omitempty" yaml:"roles,omitempty"`
}

// Role represents a role in the system
type Role struct {
	ID          int       `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// UserRole represents the mapping between users and roles
type UserRole struct {
	ID        int       `json:"id" yaml:"id"`
	UserID    int       `json:"user_id" yaml:"user_id"`
	RoleID    int       `json:"role_id" yaml:"role_id"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// MarshalJSON customizes JSON marshaling for User to handle sql.Null types properly
func (u User) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID           int        `json:"id"`
		Username     string     `json:"username"`
		Email        *string    `json:"email"`
		Timezone     *string    `json:"timezone"`
		LastActive   *time.Time `json:"last_active"`
		Premium      bool       `json:"premium"`
		PremiumSince *time.Time `json:"premium_since"`
		CreatedAt    time.Time  `json:"created_at"`
		UpdatedAt    time.Time  `json:"updated_at"`
		Roles        []Role     `json:"roles,omitempty"`
	}{
		ID:           u.ID,
		Username:     u.Username,
		Email:        nullStringToPointer(u.Email),
		Timezone:     nullStringToPointer(u.Timezone),
		LastActive:   nullTimeToPointer(u.LastActive),
		Premium:      u.Premium,
		PremiumSince: nullTimeToPointer(u.PremiumSince),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
		Roles:        u.Roles,
	})
}

// HasRole checks whether the user carries the named role
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// Helper functions for converting sql.Null types to pointers
func nullStringToPointer(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}

func nullTimeToPointer(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

// Role names used by the authorization middleware
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)
