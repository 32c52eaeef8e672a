package model

import "time"

// Passenger gender values stored in seat_claims.passenger_gender.
const (
	GenderMale   = "MALE"
	GenderFemale = "FEMALE"
	GenderOther  = "OTHER"
)

// SeatClaim is one row of the seat ledger (`seat_claims`): one physical seat
// on one trip instance held by one booking, with the passenger riding in it.
// Active is 1 while the claim is live and NULL once released; because MySQL
// unique indexes ignore NULLs, the (schedule_id, seat_number, active) key
// enforces at most one live claim per seat while keeping released rows as
// history.
//
// Fields:
//  ID              – primary key identifier.
//  ScheduleID      – trip instance the seat belongs to.
//  BookingID       – booking that owns the claim.
//  SeatNumber      – zero-padded seat label ("01".."NN").
//  PassengerName   – traveller's name.
//  PassengerAge    – traveller's age in years.
//  PassengerGender – MALE, FEMALE or OTHER.
//  Active          – 1 while live, nil once released.
//  CreatedAt       – when the claim was made.
//  ReleasedAt      – when the claim was released (null while active).
type SeatClaim struct {
	ID              uint64     // seat_claims.id
	ScheduleID      uint64     // seat_claims.schedule_id
	BookingID       uint64     // seat_claims.booking_id
	SeatNumber      string     // seat_claims.seat_number
	PassengerName   string     // seat_claims.passenger_name
	PassengerAge    uint8      // seat_claims.passenger_age
	PassengerGender string     // seat_claims.passenger_gender
	Active          *bool      // seat_claims.active (1 or NULL)
	CreatedAt       time.Time  // seat_claims.created_at
	ReleasedAt      *time.Time // seat_claims.released_at (nullable)
}
