package postgres

import (
	"fmt"
	"strings"

	"github.com/Temutjin2k/droply/internal/domain/models"
)

const packageColumns = `id, sender_id, deliverer_id, title, description, recipient_phone, weight, price,
	pickup_address, pickup_latitude, pickup_longitude,
	dropoff_address, dropoff_latitude, dropoff_longitude,
	current_latitude, current_longitude, status, created_at, updated_at`

var orderColumns = map[string]string{
	"id":         "id",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// args collects positional parameters.
type args []any

func (a *args) next(v any) string {
	*a = append(*a, v)
	return fmt.Sprintf("$%d", len(*a))
}

// where renders filter as a WHERE clause. An empty filter renders nothing.
func where(f models.PackageFilter, a *args) string {
	var conds []string

	if f.ID != nil {
		conds = append(conds, "id = "+a.next(*f.ID))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = s.String()
		}
		conds = append(conds, "status = ANY("+a.next(statuses)+")")
	}
	if f.SenderID != nil {
		conds = append(conds, "sender_id = "+a.next(*f.SenderID))
	}
	if f.DelivererID != nil {
		conds = append(conds, "deliverer_id = "+a.next(*f.DelivererID))
	}
	if f.DelivererIsNull {
		conds = append(conds, "deliverer_id IS NULL")
	}
	if f.ParticipantID != nil {
		p := a.next(*f.ParticipantID)
		conds = append(conds, fmt.Sprintf("(sender_id = %s OR deliverer_id = %s)", p, p))
	}

	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// set renders patch as a SET list. updated_at is always touched.
func set(p models.PackagePatch, a *args) string {
	var sets []string

	if p.Status != nil {
		sets = append(sets, "status = "+a.next(p.Status.String()))
	}
	switch {
	case p.ClearDeliverer:
		sets = append(sets, "deliverer_id = NULL")
	case p.DelivererID != nil:
		sets = append(sets, "deliverer_id = "+a.next(*p.DelivererID))
	}
	switch {
	case p.ClearCurrent:
		sets = append(sets, "current_latitude = NULL", "current_longitude = NULL")
	case p.Current != nil:
		sets = append(sets,
			"current_latitude = "+a.next(p.Current.Latitude),
			"current_longitude = "+a.next(p.Current.Longitude),
		)
	}

	sets = append(sets, "updated_at = now()")
	return strings.Join(sets, ", ")
}

func orderBy(o *models.OrderBy) string {
	if o == nil {
		return " ORDER BY id"
	}
	col, ok := orderColumns[o.Field]
	if !ok {
		col = "id"
	}
	dir := "ASC"
	if o.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id %s", col, dir, dir)
}
