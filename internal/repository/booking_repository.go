package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Yusuf8760/bus-booking-frontend/internal/model"
)

// bookingsSchema creates the ledger table.  payment_id is the primary key so
// at most one booking is ever recorded per payment.
const bookingsSchema = `CREATE TABLE IF NOT EXISTS bookings (
    payment_id   VARCHAR(64)  NOT NULL PRIMARY KEY,
    order_id     VARCHAR(64)  NOT NULL,
    bus_id       BIGINT UNSIGNED NOT NULL,
    seat_ids     JSON         NOT NULL,
    user_name    VARCHAR(191) NOT NULL,
    amount       BIGINT       NOT NULL,
    currency     CHAR(3)      NOT NULL,
    message      VARCHAR(255) NOT NULL DEFAULT '',
    confirmed_at DATETIME     NOT NULL,
    KEY idx_bookings_user (user_name, confirmed_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

const bookingColumns = `payment_id, order_id, bus_id, seat_ids, user_name, amount, currency, message, confirmed_at`

// BookingRepo is the ledger of confirmed bookings.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to db.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// EnsureSchema creates the bookings table when it does not exist.
func (r *BookingRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, bookingsSchema); err != nil {
		return fmt.Errorf("create bookings table: %w", err)
	}
	return nil
}

// FindByPaymentID returns the booking recorded for paymentID.  found is
// false, with a nil error, when there is none.
func (r *BookingRepo) FindByPaymentID(ctx context.Context, paymentID string) (model.BookingResult, bool, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE payment_id = ?`,
		paymentID,
	)
	res, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BookingResult{}, false, nil
	}
	if err != nil {
		return model.BookingResult{}, false, err
	}
	return res, true, nil
}

// Record stores a confirmed booking.  Recording the same payment twice with
// the same order is a no-op; recording it for a different order returns
// ErrConflict.
func (r *BookingRepo) Record(ctx context.Context, res model.BookingResult) error {
	seats, err := json.Marshal(res.SeatIDs)
	if err != nil {
		return err
	}
	confirmed := res.ConfirmedAt
	if confirmed.IsZero() {
		confirmed = time.Now()
	}
	out, err := r.db.ExecContext(ctx,
		`INSERT INTO bookings (`+bookingColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON DUPLICATE KEY UPDATE payment_id = payment_id`,
		res.PaymentID, res.OrderID, res.BusID, string(seats), res.UserName,
		res.Amount, res.Currency, res.Message, confirmed.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return err
	}
	// MySQL reports 0 affected rows when the duplicate row was left as is.
	if n, err := out.RowsAffected(); err == nil && n == 0 {
		prev, found, err := r.FindByPaymentID(ctx, res.PaymentID)
		if err != nil {
			return err
		}
		if found && prev.OrderID != res.OrderID {
			return ErrConflict
		}
	}
	return nil
}

// ListByUser returns the most recent bookings of userName, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userName string, limit int) ([]model.BookingResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_name = ? ORDER BY confirmed_at DESC LIMIT ?`,
		userName, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.BookingResult{}
	for rows.Next() {
		res, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(s rowScanner) (model.BookingResult, error) {
	var (
		res   model.BookingResult
		seats []byte
	)
	if err := s.Scan(&res.PaymentID, &res.OrderID, &res.BusID, &seats, &res.UserName,
		&res.Amount, &res.Currency, &res.Message, &res.ConfirmedAt); err != nil {
		return model.BookingResult{}, err
	}
	if len(seats) > 0 {
		if err := json.Unmarshal(seats, &res.SeatIDs); err != nil {
			return model.BookingResult{}, fmt.Errorf("decode seat_ids of %s: %w", res.PaymentID, err)
		}
	}
	res.ConfirmedAt = res.ConfirmedAt.UTC()
	return res, nil
}
