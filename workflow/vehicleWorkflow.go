package workflow

import (
	"context"
	"errors"
	"strings"

	"bitbucket.org/bjitlabs/erpgate_backend/config"
	"bitbucket.org/bjitlabs/erpgate_backend/erp"
	"github.com/sirupsen/logrus"
)

type VehicleRequest struct {
	Name               string `json:"vehicle_name" binding:"required"`
	RegistrationNumber string `json:"registration_number" binding:"required"`
	Model              string `json:"model"`
	RegistrationYear   string `json:"registration_year"`
	Colour             string `json:"colour"`
	OwnerId            int    `json:"owner_id" binding:"required"`
}

// CreateVehicle registers a vehicle under an existing partner. The registration
// number must be unique per owner; the check runs before the create so a
// duplicate request fails with a conflict instead of leaving a half-written
// record behind.
func CreateVehicle(ctx context.Context, vehicles erp.VehicleStore, partners erp.PartnerStore, logger *logrus.Logger, req VehicleRequest) (int, error) {
	req.RegistrationNumber = strings.TrimSpace(req.RegistrationNumber)
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return 0, Validation("vehicle_name is required")
	}
	if req.RegistrationNumber == "" {
		return 0, Validation("registration_number is required")
	}
	if req.OwnerId <= 0 {
		return 0, Validation("owner_id is required")
	}

	_, err := partners.GetPartner(ctx, req.OwnerId)
	if errors.Is(err, erp.ErrNotFound) {
		return 0, NotFound("owner not found")
	}
	if err != nil {
		config.LogError(logger, "vehicleWorkflow.go", "CreateVehicle", "GetPartner", req.OwnerId, err)
		return 0, Dependency("could not look up the owner", err)
	}

	existing, err := vehicles.FindVehicle(ctx, req.RegistrationNumber, req.OwnerId)
	if err != nil && !errors.Is(err, erp.ErrNotFound) {
		config.LogError(logger, "vehicleWorkflow.go", "CreateVehicle", "FindVehicle", req.RegistrationNumber, err)
		return 0, Dependency("could not check the registration number", err)
	}
	if existing != nil {
		return 0, Conflict("a vehicle with this registration number already exists for this owner")
	}

	id, err := vehicles.CreateVehicle(ctx, erp.VehicleInput{
		Name:               req.Name,
		RegistrationNumber: req.RegistrationNumber,
		Model:              req.Model,
		RegistrationYear:   req.RegistrationYear,
		Colour:             req.Colour,
		OwnerId:            req.OwnerId,
	})
	if err != nil {
		if erp.IsUniqueViolation(err) {
			return 0, Conflict("a vehicle with this registration number already exists for this owner")
		}
		config.LogError(logger, "vehicleWorkflow.go", "CreateVehicle", "CreateVehicle", req.RegistrationNumber, err)
		return 0, Dependency("could not create the vehicle", err)
	}
	return id, nil
}

// DeleteVehicle removes the vehicle identified by registration number and
// owner.
func DeleteVehicle(ctx context.Context, vehicles erp.VehicleStore, logger *logrus.Logger, registrationNumber string, ownerId int) error {
	registrationNumber = strings.TrimSpace(registrationNumber)
	if registrationNumber == "" {
		return Validation("registration_number is required")
	}
	if ownerId <= 0 {
		return Validation("owner_id is required")
	}

	vehicle, err := vehicles.FindVehicle(ctx, registrationNumber, ownerId)
	if errors.Is(err, erp.ErrNotFound) {
		return NotFound("vehicle not found")
	}
	if err != nil {
		config.LogError(logger, "vehicleWorkflow.go", "DeleteVehicle", "FindVehicle", registrationNumber, err)
		return Dependency("could not look up the vehicle", err)
	}

	if err := vehicles.DeleteVehicle(ctx, vehicle.Id); err != nil {
		config.LogError(logger, "vehicleWorkflow.go", "DeleteVehicle", "DeleteVehicle", vehicle.Id, err)
		return Dependency("could not delete the vehicle", err)
	}
	return nil
}
