package reports

import (
	"github.com/shopspring/decimal"

	"github.com/rpattn/esgdash/internal/domain"
	"github.com/rpattn/esgdash/internal/history"
)

// Age report categories.
const (
	AgeUnder30      = "Under 30"
	Age30To49       = "30-49"
	Age50Plus       = "50+"
	ManagersUnder30 = "Managers under 30"
	Managers30To49  = "Managers 30-49"
	Managers50Plus  = "Managers 50+"
	CategoryLeft    = "Left Company"
	CategoryJoined  = "Joined Company"
)

const percentagePrecision = 1

// AgeCategories lists the age report categories in display order.
var AgeCategories = []string{
	AgeUnder30,
	Age30To49,
	Age50Plus,
	ManagersUnder30,
	Managers30To49,
	Managers50Plus,
	CategoryLeft,
	CategoryJoined,
}

var hundred = decimal.NewFromInt(100)

// Percentage returns 100*part/whole rounded to one decimal. A zero whole
// yields 0.
func Percentage(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(whole).Round(percentagePrecision)
}

// ageBand buckets a whole-year age.
func ageBand(age int) (band, managerBand string) {
	switch {
	case age < 30:
		return AgeUnder30, ManagersUnder30
	case age < 50:
		return Age30To49, Managers30To49
	default:
		return Age50Plus, Managers50Plus
	}
}

// Age report category groups. Each group is its own percentage denominator.
const (
	groupAge      = "age"
	groupManagers = "managers"
	groupMovement = "movement"
)

// cohort accumulates one year's category counts. Categories belong to a
// group, and the distinct members of that group are the percentage
// denominator for count based reports. add uses the unnamed group.
type cohort struct {
	year    int
	order   []string
	counts  map[string]int
	values  map[string]decimal.Decimal
	groupOf map[string]string
	groups  map[string]map[int64]struct{}
	total   decimal.Decimal
}

func newCohort(year int) *cohort {
	return &cohort{
		year:    year,
		counts:  make(map[string]int),
		values:  make(map[string]decimal.Decimal),
		groupOf: make(map[string]string),
		groups:  make(map[string]map[int64]struct{}),
		total:   decimal.Zero,
	}
}

func (c *cohort) add(memberID int64, category string) {
	c.addTo("", memberID, category)
}

// addTo counts memberID under category and in the denominator of group.
func (c *cohort) addTo(group string, memberID int64, category string) {
	if _, ok := c.counts[category]; !ok {
		c.order = append(c.order, category)
		c.groupOf[category] = group
	}
	c.counts[category]++
	c.member(group, memberID)
}

// member counts memberID in the denominator of group without a category.
func (c *cohort) member(group string, memberID int64) {
	members, ok := c.groups[group]
	if !ok {
		members = make(map[int64]struct{})
		c.groups[group] = members
	}
	members[memberID] = struct{}{}
}

func (c *cohort) addValue(memberID int64, category string, value decimal.Decimal) {
	c.add(memberID, category)
	c.values[category] = c.values[category].Add(value)
	c.total = c.total.Add(value)
}

// countRows emits rows whose percentage is a share of the distinct members
// of the category's group.
func (c *cohort) countRows() []Row {
	rows := make([]Row, 0, len(c.order))
	for _, category := range c.order {
		count := c.counts[category]
		whole := decimal.NewFromInt(int64(len(c.groups[c.groupOf[category]])))
		rows = append(rows, Row{
			Year:       c.year,
			Category:   category,
			Count:      count,
			Percentage: Percentage(decimal.NewFromInt(int64(count)), whole),
		})
	}
	return rows
}

// valueRows emits rows whose percentage is a share of the summed value.
func (c *cohort) valueRows() []Row {
	rows := make([]Row, 0, len(c.order))
	for _, category := range c.order {
		value := c.values[category]
		rows = append(rows, Row{
			Year:       c.year,
			Category:   category,
			Count:      c.counts[category],
			Value:      &value,
			Percentage: Percentage(value, c.total),
		})
	}
	return rows
}

// countShareRows emits summed values with a percentage that is a share of
// distinct members. Used where values of different units cannot be added.
func (c *cohort) countShareRows() []Row {
	rows := c.countRows()
	for i := range rows {
		value := c.values[rows[i].Category]
		rows[i].Value = &value
	}
	return rows
}

// labelFor resolves a tracked id field and returns its lookup row.
func labelFor(idx *history.Index, entityID int64, field domain.TrackedField, current *string, year int, table domain.LookupTable) (domain.Lookup, bool) {
	id, ok := idx.ResolveID(entityID, field, current, year)
	if !ok {
		return domain.Lookup{}, false
	}
	return table.Get(id)
}

func employeeField(e domain.Employee, field domain.TrackedField) *string {
	return e.Snapshot()[field]
}

// AttributeDistribution partitions employees on staff in each year by the
// lookup label of field as it stood at the end of that year. Employees whose
// resolved value is empty or unknown to labels are left out.
func AttributeDistribution(company string, employees []domain.Employee, idx *history.Index, field domain.TrackedField, labels domain.LookupTable, years []int) []Row {
	var rows []Row
	for _, year := range years {
		c := newCohort(year)
		for _, employee := range employees {
			if !employee.BelongsTo(company) || !employee.EmployedIn(year) {
				continue
			}
			label, ok := labelFor(idx, employee.ID, field, employeeField(employee, field), year, labels)
			if !ok {
				continue
			}
			c.add(employee.ID, label.Name)
		}
		rows = append(rows, c.countRows()...)
	}
	return rows
}

// AgeFluctuation buckets employees on staff by age at the end of each year,
// with a parallel managers breakdown, plus joiners and leavers of the year.
// Age bands are shares of staff with a birth date, manager bands shares of
// managers, and joiners and leavers shares of the year's headcount.
func AgeFluctuation(company string, employees []domain.Employee, idx *history.Index, managerial domain.LookupTable, years []int) []Row {
	var rows []Row
	for _, year := range years {
		c := newCohort(year)
		endOfYear := domain.EndOfYear(year)
		for _, employee := range employees {
			if !employee.BelongsTo(company) || !employee.EmployedIn(year) {
				continue
			}

			c.member(groupMovement, employee.ID)

			if employee.BirthDate != nil && !employee.BirthDate.After(endOfYear.Time) {
				band, managerBand := ageBand(domain.YearsBetween(*employee.BirthDate, endOfYear))
				c.addTo(groupAge, employee.ID, band)

				position, ok := labelFor(idx, employee.ID, domain.FieldManagerialPositionID, domain.IDText(employee.ManagerialPositionID), year, managerial)
				if ok && position.IsManager {
					c.addTo(groupManagers, employee.ID, managerBand)
				}
			}

			if employee.TerminationDate != nil && employee.TerminationDate.Year() == year {
				c.addTo(groupMovement, employee.ID, CategoryLeft)
			}
			if employee.EmploymentDate != nil && employee.EmploymentDate.Year() == year {
				c.addTo(groupMovement, employee.ID, CategoryJoined)
			}
		}
		rows = append(rows, c.countRows()...)
	}
	return rows
}

// LeaveDistribution counts the employees who left in each year by their
// gender at the end of that year.
func LeaveDistribution(company string, employees []domain.Employee, idx *history.Index, genders domain.LookupTable, years []int) []Row {
	var rows []Row
	for _, year := range years {
		c := newCohort(year)
		for _, employee := range employees {
			if !employee.BelongsTo(company) {
				continue
			}
			if employee.TerminationDate == nil || employee.TerminationDate.Year() != year {
				continue
			}
			gender, ok := labelFor(idx, employee.ID, domain.FieldGenderID, domain.IDText(employee.GenderID), year, genders)
			if !ok {
				continue
			}
			c.add(employee.ID, gender.Name)
		}
		rows = append(rows, c.countRows()...)
	}
	return rows
}

// FleetDistribution counts vehicles in service in each year by their vehicle
// type at the end of that year.
func FleetDistribution(company string, vehicles []domain.Vehicle, idx *history.Index, vehicleTypes domain.LookupTable, years []int) []Row {
	var rows []Row
	for _, year := range years {
		c := newCohort(year)
		for _, vehicle := range vehicles {
			if !vehicle.BelongsTo(company) || !vehicle.InServiceIn(year) {
				continue
			}
			vehicleType, ok := labelFor(idx, vehicle.ID, domain.FieldVehicleTypeID, domain.IDText(vehicle.VehicleTypeID), year, vehicleTypes)
			if !ok {
				continue
			}
			c.add(vehicle.ID, vehicleType.Name)
		}
		rows = append(rows, c.countRows()...)
	}
	return rows
}

// EmissionKg converts a distance driven with a g/km factor to kilograms of CO2.
func EmissionKg(distanceKm decimal.Decimal, gramsPerKm decimal.Decimal) decimal.Decimal {
	return distanceKm.Mul(gramsPerKm).Div(decimal.NewFromInt(1000))
}

// EmissionsByVehicleType sums the CO2 of each year's routes by the vehicle
// type the vehicle had at the end of that year. Routes of unknown vehicles
// or of types without an emission factor are left out.
func EmissionsByVehicleType(company string, vehicles []domain.Vehicle, routes []domain.Route, idx *history.Index, vehicleTypes domain.LookupTable, years []int) []Row {
	fleet := make(map[int64]domain.Vehicle, len(vehicles))
	for _, vehicle := range vehicles {
		if vehicle.BelongsTo(company) {
			fleet[vehicle.ID] = vehicle
		}
	}

	var rows []Row
	for _, year := range years {
		c := newCohort(year)
		for _, route := range routes {
			if route.RouteDate.Year() != year {
				continue
			}
			vehicle, ok := fleet[route.FleetID]
			if !ok {
				continue
			}
			vehicleType, ok := labelFor(idx, vehicle.ID, domain.FieldVehicleTypeID, domain.IDText(vehicle.VehicleTypeID), year, vehicleTypes)
			if !ok || vehicleType.CO2PerKm == nil {
				continue
			}
			c.addValue(route.ID, vehicleType.Name, EmissionKg(route.DistanceKm, *vehicleType.CO2PerKm).Round(3))
		}
		rows = append(rows, c.valueRows()...)
	}
	return rows
}

// UtilityConsumption sums bill consumption per utility for bills whose
// period starts in each year. Percentages are shares of the bill count since
// utilities are measured in different units.
func UtilityConsumption(company string, bills []domain.Bill, utilities domain.LookupTable, years []int) []Row {
	var rows []Row
	for _, year := range years {
		c := newCohort(year)
		for _, bill := range bills {
			if !domain.SameCompany(bill.Company, company) || bill.PeriodStart.Year() != year {
				continue
			}
			utility, ok := utilities.Get(bill.UtilityID)
			if !ok {
				continue
			}
			c.addValue(bill.ID, utility.Name, bill.Consumption)
		}
		rows = append(rows, c.countShareRows()...)
	}
	return rows
}
