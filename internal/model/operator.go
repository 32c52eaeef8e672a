package model

import "time"

// Operator represents a bus company from the `operators` table.  Operators
// own buses and routes; schedules reference them indirectly through both.
//
// Fields:
//  ID           – primary key identifier.
//  Name         – unique company name.
//  ContactEmail – support email address, may be empty.
//  ContactPhone – support phone number, may be empty.
//  IsActive     – soft-delete flag; inactive operators are hidden from
//                 search and refuse new schedules.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Operator struct {
	ID           uint64    // operators.id
	Name         string    // operators.name
	ContactEmail string    // operators.contact_email
	ContactPhone string    // operators.contact_phone
	IsActive     bool      // operators.is_active
	CreatedAt    time.Time // operators.created_at
	UpdatedAt    time.Time // operators.updated_at
}
