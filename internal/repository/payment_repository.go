package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stanstork/nestpay-api/internal/models"
	"github.com/stanstork/nestpay-api/internal/occupancy"
)

const paymentColumns = `id, tenant_id, property_id, unit_id, amount, currency, method, provider, provider_ref,
	status, paid_on, payment_expires_at, duration_months, metadata, created_at`

const paymentDetailSelect = `
	SELECT pay.id, pay.tenant_id, pay.property_id, pay.unit_id, pay.amount, pay.currency, pay.method,
	       pay.provider, pay.provider_ref, pay.status, pay.paid_on, pay.payment_expires_at,
	       pay.duration_months, pay.metadata, pay.created_at,
	       p.title, u.label, up.full_name, p.rent_amount, u.rent_amount
	FROM nestpay.payments pay
	JOIN nestpay.properties p ON p.id = pay.property_id
	LEFT JOIN nestpay.units u ON u.id = pay.unit_id
	LEFT JOIN nestpay.user_profiles up ON up.id = pay.tenant_id
`

func (s *LifecycleStore) GetPayment(ctx context.Context, id string) (models.PaymentDetail, error) {
	return scanPaymentDetail(s.db.QueryRowContext(ctx, paymentDetailSelect+` WHERE pay.id = $1`, id))
}

func (s *LifecycleStore) ListPaymentsByTenant(ctx context.Context, tenantID string) ([]models.PaymentDetail, error) {
	return s.listPayments(ctx, paymentDetailSelect+` WHERE pay.tenant_id = $1 ORDER BY pay.created_at DESC`, tenantID)
}

func (s *LifecycleStore) ListPaymentsByOwner(ctx context.Context, ownerID string) ([]models.PaymentDetail, error) {
	return s.listPayments(ctx, paymentDetailSelect+` WHERE p.owner_id = $1 ORDER BY pay.created_at DESC`, ownerID)
}

func (s *LifecycleStore) listPayments(ctx context.Context, query string, args ...interface{}) ([]models.PaymentDetail, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list payments")
	}
	defer rows.Close()

	var out []models.PaymentDetail
	for rows.Next() {
		p, err := scanPaymentDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *lifecycleTx) InsertPayment(ctx context.Context, p models.Payment) (models.Payment, error) {
	query := `
		INSERT INTO nestpay.payments (tenant_id, property_id, unit_id, amount, currency, method, provider, status, duration_months, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + paymentColumns
	var metadata interface{}
	if len(p.Metadata) > 0 {
		metadata = []byte(p.Metadata)
	}
	created, err := scanPayment(t.q.QueryRowContext(ctx, query,
		p.TenantID, p.PropertyID, p.UnitID, p.Amount, p.Currency, p.Method, p.Provider, p.Status, p.DurationMonths, metadata))
	if err != nil {
		return models.Payment{}, errors.Wrap(err, "insert payment")
	}
	return created, nil
}

func (t *lifecycleTx) LockPayment(ctx context.Context, id string) (models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM nestpay.payments WHERE id = $1 FOR UPDATE`
	return scanPayment(t.q.QueryRowContext(ctx, query, id))
}

func (t *lifecycleTx) SetPaymentStatus(ctx context.Context, id string, from, to models.PaymentStatus, settlement occupancy.PaymentSettlement) (models.Payment, error) {
	query := `
		UPDATE nestpay.payments
		SET status = $3,
		    paid_on = COALESCE($4, paid_on),
		    payment_expires_at = COALESCE($5, payment_expires_at),
		    provider_ref = COALESCE($6, provider_ref)
		WHERE id = $1 AND status = $2
		RETURNING ` + paymentColumns
	return scanPayment(t.q.QueryRowContext(ctx, query,
		id, from, to, settlement.PaidOn, settlement.ExpiresAt, settlement.ProviderRef))
}

func scanPayment(s scanner) (models.Payment, error) {
	var (
		p           models.Payment
		unitID      sql.NullString
		provider    sql.NullString
		providerRef sql.NullString
		paidOn      sql.NullTime
		expiresAt   sql.NullTime
		metadata    []byte
	)
	if err := s.Scan(
		&p.ID,
		&p.TenantID,
		&p.PropertyID,
		&unitID,
		&p.Amount,
		&p.Currency,
		&p.Method,
		&provider,
		&providerRef,
		&p.Status,
		&paidOn,
		&expiresAt,
		&p.DurationMonths,
		&metadata,
		&p.CreatedAt,
	); err != nil {
		return models.Payment{}, err
	}
	p.UnitID = stringPtr(unitID)
	p.Provider = stringPtr(provider)
	p.ProviderRef = stringPtr(providerRef)
	p.PaidOn = timePtr(paidOn)
	p.PaymentExpiresAt = timePtr(expiresAt)
	if len(metadata) > 0 {
		p.Metadata = metadata
	}
	return p, nil
}

func scanPaymentDetail(s scanner) (models.PaymentDetail, error) {
	var (
		d           models.PaymentDetail
		unitID      sql.NullString
		provider    sql.NullString
		providerRef sql.NullString
		paidOn      sql.NullTime
		expiresAt   sql.NullTime
		metadata    []byte
		unitLabel   sql.NullString
		tenantName  sql.NullString
		unitRent    decimal.NullDecimal
	)
	if err := s.Scan(
		&d.ID,
		&d.TenantID,
		&d.PropertyID,
		&unitID,
		&d.Amount,
		&d.Currency,
		&d.Method,
		&provider,
		&providerRef,
		&d.Status,
		&paidOn,
		&expiresAt,
		&d.DurationMonths,
		&metadata,
		&d.CreatedAt,
		&d.PropertyTitle,
		&unitLabel,
		&tenantName,
		&d.PropertyRent,
		&unitRent,
	); err != nil {
		return models.PaymentDetail{}, err
	}
	d.UnitID = stringPtr(unitID)
	d.Provider = stringPtr(provider)
	d.ProviderRef = stringPtr(providerRef)
	d.PaidOn = timePtr(paidOn)
	d.PaymentExpiresAt = timePtr(expiresAt)
	if len(metadata) > 0 {
		d.Metadata = metadata
	}
	d.UnitLabel = stringPtr(unitLabel)
	d.TenantName = stringPtr(tenantName)
	d.UnitRent = decimalPtr(unitRent)
	return d, nil
}
