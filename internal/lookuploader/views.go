package lookuploader

import (
	"context"

	"github.com/rpattn/esgdash/internal/domain"
)

// EmployeeView is an employee with the names of its reference ids, keyed by
// id column.
type EmployeeView struct {
	domain.Employee
	Labels map[domain.TrackedField]string `json:"labels"`
}

// VehicleView is a vehicle with the name of its vehicle type.
type VehicleView struct {
	domain.Vehicle
	Labels map[domain.TrackedField]string `json:"labels"`
}

func snapshotRefs(snapshot domain.Snapshot, fields []domain.TrackedField) map[domain.TrackedField]Ref {
	refs := make(map[domain.TrackedField]Ref, len(fields))
	for _, field := range fields {
		kind, ok := domain.LookupKindForField(field)
		if !ok {
			continue
		}
		id, ok := domain.ParseIDText(snapshot[field])
		if !ok {
			continue
		}
		refs[field] = Ref{Kind: kind, ID: id}
	}
	return refs
}

func (l *LookupLoader) label(ctx context.Context, perEntity []map[domain.TrackedField]Ref) ([]map[domain.TrackedField]string, error) {
	var all []Ref
	for _, refs := range perEntity {
		for _, ref := range refs {
			all = append(all, ref)
		}
	}

	names, err := l.Labels(ctx, all)
	if err != nil {
		return nil, err
	}

	out := make([]map[domain.TrackedField]string, len(perEntity))
	for i, refs := range perEntity {
		labels := make(map[domain.TrackedField]string, len(refs))
		for field, ref := range refs {
			if name, ok := names[ref]; ok {
				labels[field] = name
			}
		}
		out[i] = labels
	}
	return out, nil
}

// Employees labels every employee with a single batched read per table.
func (l *LookupLoader) Employees(ctx context.Context, employees []domain.Employee) ([]EmployeeView, error) {
	perEntity := make([]map[domain.TrackedField]Ref, len(employees))
	for i, e := range employees {
		perEntity[i] = snapshotRefs(e.Snapshot(), domain.EmployeeTrackedFields)
	}

	labels, err := l.label(ctx, perEntity)
	if err != nil {
		return nil, err
	}

	views := make([]EmployeeView, len(employees))
	for i, e := range employees {
		views[i] = EmployeeView{Employee: e, Labels: labels[i]}
	}
	return views, nil
}

// Vehicles labels every vehicle with its vehicle type name.
func (l *LookupLoader) Vehicles(ctx context.Context, vehicles []domain.Vehicle) ([]VehicleView, error) {
	perEntity := make([]map[domain.TrackedField]Ref, len(vehicles))
	for i, v := range vehicles {
		perEntity[i] = snapshotRefs(v.Snapshot(), domain.FleetTrackedFields)
	}

	labels, err := l.label(ctx, perEntity)
	if err != nil {
		return nil, err
	}

	views := make([]VehicleView, len(vehicles))
	for i, v := range vehicles {
		views[i] = VehicleView{Vehicle: v, Labels: labels[i]}
	}
	return views, nil
}
