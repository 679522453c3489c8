package api

import (
	"net/http"

	"github.com/rpattn/esgdash/internal/domain"
)

func (s *Server) listVehicles(w http.ResponseWriter, r *http.Request) {
	tenant, err := company(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	vehicles, err := s.deps.Fleet.List(r.Context(), tenant)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if l := loader(r); l != nil {
		views, err := l.Vehicles(r.Context(), vehicles)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, views)
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}

func (s *Server) getVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tenant, err := company(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	vehicle, err := s.deps.Fleet.GetByID(r.Context(), tenant, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if l := loader(r); l != nil {
		views, err := l.Vehicles(r.Context(), []domain.Vehicle{vehicle})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, views[0])
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

func (s *Server) createVehicle(w http.ResponseWriter, r *http.Request) {
	var vehicle domain.Vehicle
	if err := decodeJSON(r, &vehicle); err != nil {
		writeError(w, r, err)
		return
	}
	tenant, err := payloadCompany(r, vehicle.Company)
	if err != nil {
		writeError(w, r, err)
		return
	}
	vehicle.ID = 0
	vehicle.Company = tenant

	created, err := s.deps.Fleet.Create(r.Context(), vehicle)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type vehicleUpdate struct {
	Vehicle domain.Vehicle          `json:"vehicle"`
	Changes []domain.ChangeLogEntry `json:"changes"`
}

func (s *Server) updateVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var vehicle domain.Vehicle
	if err := decodeJSON(r, &vehicle); err != nil {
		writeError(w, r, err)
		return
	}
	tenant, err := payloadCompany(r, vehicle.Company)
	if err != nil {
		writeError(w, r, err)
		return
	}
	vehicle.ID = id
	vehicle.Company = tenant

	updated, changes, err := s.deps.Fleet.Update(r.Context(), vehicle)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if changes == nil {
		changes = []domain.ChangeLogEntry{}
	}
	writeJSON(w, http.StatusOK, vehicleUpdate{Vehicle: updated, Changes: changes})
}

func (s *Server) deleteVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tenant, err := company(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Fleet.Delete(r.Context(), tenant, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) vehicleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tenant, err := company(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := s.deps.Fleet.History(r.Context(), tenant, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.NewEntityHistory(id, entries))
}

func (s *Server) listRoutes(w http.ResponseWriter, r *http.Request) {
	tenant, err := company(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	routes, err := s.deps.Routes.List(r.Context(), tenant)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, routes)
}

func (s *Server) createRoute(w http.ResponseWriter, r *http.Request) {
	var route domain.Route
	if err := decodeJSON(r, &route); err != nil {
		writeError(w, r, err)
		return
	}
	tenant, err := payloadCompany(r, route.Company)
	if err != nil {
		writeError(w, r, err)
		return
	}
	route.ID = 0
	route.Company = tenant

	if route.FleetID != 0 {
		// A route may only reference a vehicle of the same company.
		if _, err := s.deps.Fleet.GetByID(r.Context(), tenant, route.FleetID); err != nil {
			writeError(w, r, err)
			return
		}
	}

	created, err := s.deps.Routes.Create(r.Context(), route)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) deleteRoute(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tenant, err := company(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Routes.Delete(r.Context(), tenant, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
