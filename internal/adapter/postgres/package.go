package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/droply/internal/domain/models"
	"github.com/Temutjin2k/droply/internal/domain/types"
	"github.com/Temutjin2k/droply/pkg/metrics"
)

type PackageRepo struct {
	db *pgxpool.Pool
}

func NewPackageRepo(db *pgxpool.Pool) *PackageRepo {
	return &PackageRepo{db: db}
}

func (r *PackageRepo) Insert(ctx context.Context, pkg *models.Package) (_ *models.Package, err error) {
	defer recordQuery("package_insert", time.Now(), &err)
	q := TxorDB(ctx, r.db)

	query := `INSERT INTO packages (sender_id, deliverer_id, title, description, recipient_phone, weight, price,
				pickup_address, pickup_latitude, pickup_longitude,
				dropoff_address, dropoff_latitude, dropoff_longitude, status)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			  RETURNING ` + packageColumns

	row := q.QueryRow(ctx, query,
		pkg.SenderID, pkg.DelivererID, pkg.Title, pkg.Description, pkg.RecipientPhone, pkg.Weight, pkg.Price,
		pkg.PickupAddress, pkg.PickupLatitude, pkg.PickupLongitude,
		pkg.DropoffAddress, pkg.DropoffLatitude, pkg.DropoffLongitude, pkg.Status.String(),
	)

	created, err := scanPackage(row)
	if err != nil {
		return nil, fmt.Errorf("package repo: Insert: %w", err)
	}
	return created, nil
}

func (r *PackageRepo) Find(ctx context.Context, filter models.PackageFilter, order *models.OrderBy) (_ []models.Package, err error) {
	defer recordQuery("package_find", time.Now(), &err)
	q := TxorDB(ctx, r.db)

	var a args
	query := "SELECT " + packageColumns + " FROM packages" + where(filter, &a) + orderBy(order)

	rows, err := q.Query(ctx, query, a...)
	if err != nil {
		return nil, fmt.Errorf("package repo: Find: %w", err)
	}
	defer rows.Close()

	pkgs := make([]models.Package, 0)
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("package repo: Find: scan: %w", err)
		}
		pkgs = append(pkgs, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("package repo: Find: rows: %w", err)
	}

	return pkgs, nil
}

func (r *PackageRepo) FindOne(ctx context.Context, filter models.PackageFilter) (_ *models.Package, err error) {
	defer recordQuery("package_find_one", time.Now(), &err)
	q := TxorDB(ctx, r.db)

	var a args
	query := "SELECT " + packageColumns + " FROM packages" + where(filter, &a) + orderBy(nil) + " LIMIT 1"

	p, err := scanPackage(q.QueryRow(ctx, query, a...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("package repo: FindOne: %w", types.ErrPackageNotFound)
		}
		return nil, fmt.Errorf("package repo: FindOne: %w", err)
	}
	return p, nil
}

// UpdateWhere is a single UPDATE, so the filter doubles as a compare-and-set guard.
func (r *PackageRepo) UpdateWhere(ctx context.Context, filter models.PackageFilter, patch models.PackagePatch) (_ int64, err error) {
	defer recordQuery("package_update", time.Now(), &err)
	q := TxorDB(ctx, r.db)

	var a args
	sets := set(patch, &a)
	query := "UPDATE packages SET " + sets + where(filter, &a)

	tag, err := q.Exec(ctx, query, a...)
	if err != nil {
		return 0, fmt.Errorf("package repo: UpdateWhere: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanPackage(row pgx.Row) (*models.Package, error) {
	var (
		p      models.Package
		status string
	)

	err := row.Scan(
		&p.ID, &p.SenderID, &p.DelivererID, &p.Title, &p.Description, &p.RecipientPhone, &p.Weight, &p.Price,
		&p.PickupAddress, &p.PickupLatitude, &p.PickupLongitude,
		&p.DropoffAddress, &p.DropoffLatitude, &p.DropoffLongitude,
		&p.CurrentLatitude, &p.CurrentLongitude, &status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Status = types.PackageStatus(status)
	return &p, nil
}

func recordQuery(op string, start time.Time, err *error) {
	var e error
	if err != nil {
		e = *err
	}
	if errors.Is(e, types.ErrPackageNotFound) {
		e = nil
	}
	metrics.RecordDatabaseQuery(op, e, time.Since(start))
}
