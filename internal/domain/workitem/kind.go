package workitem

import "fmt"

// Kind identifies which domain (and backing table) a work item belongs to.
type Kind string

const (
	KindGeneral    Kind = "general"
	KindLaundry    Kind = "laundry"
	KindRestaurant Kind = "restaurant"
	KindDelivery   Kind = "delivery"
	KindRepair     Kind = "repair"
	KindAccounting Kind = "accounting"
)

var kindTables = map[Kind]string{
	KindGeneral:    "tasks",
	KindLaundry:    "laundry_tasks",
	KindRestaurant: "restaurant_tasks",
	KindDelivery:   "delivery_tasks",
	KindRepair:     "repair_tasks",
	KindAccounting: "accounting_tasks",
}

// AllKinds returns every kind in a stable order.
func AllKinds() []Kind {
	return []Kind{KindGeneral, KindLaundry, KindRestaurant, KindDelivery, KindRepair, KindAccounting}
}

// ParseKind maps a string tag to a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := kindTables[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Table is the backing table name. Only known kinds have one, so it is safe to splice into SQL.
func (k Kind) Table() string {
	return kindTables[k]
}

// EntityType is the audit entity type for items of this kind.
func (k Kind) EntityType() string {
	return "work_item:" + string(k)
}
