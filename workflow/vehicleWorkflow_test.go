package workflow

import (
	"context"
	"testing"

	"bitbucket.org/bjitlabs/erpgate_backend/erp"
)

func seedOwner(store *fakeStore) erp.Partner {
	owner := erp.Partner{Id: 5, Name: "Owner", CustomerRank: 1}
	store.partners[owner.Id] = owner
	return owner
}

func TestCreateVehicle_HappyPath(t *testing.T) {
	store := newFakeStore()
	owner := seedOwner(store)

	id, err := CreateVehicle(context.Background(), store, store, testLogger(), VehicleRequest{
		Name:               "Truck 1",
		RegistrationNumber: "DHK-1234",
		Model:              "Canter",
		OwnerId:            owner.Id,
	})
	if err != nil {
		t.Fatalf("CreateVehicle failed: %v", err)
	}
	vehicle, err := store.FindVehicle(context.Background(), "DHK-1234", owner.Id)
	if err != nil {
		t.Fatalf("vehicle not queryable: %v", err)
	}
	if vehicle.Id != id {
		t.Fatalf("FindVehicle returned id %d, want %d", vehicle.Id, id)
	}
}

func TestCreateVehicle_DuplicateRegistrationIsConflict(t *testing.T) {
	store := newFakeStore()
	owner := seedOwner(store)

	req := VehicleRequest{Name: "Truck 1", RegistrationNumber: "DHK-1234", OwnerId: owner.Id}
	if _, err := CreateVehicle(context.Background(), store, store, testLogger(), req); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	_, err := CreateVehicle(context.Background(), store, store, testLogger(), req)
	if KindOf(err) != KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(store.vehicles) != 1 {
		t.Fatalf("expected 1 vehicle, got %d", len(store.vehicles))
	}
}

func TestCreateVehicle_SameRegistrationDifferentOwnerAllowed(t *testing.T) {
	store := newFakeStore()
	owner := seedOwner(store)
	other := erp.Partner{Id: 6, Name: "Other", CustomerRank: 1}
	store.partners[other.Id] = other

	if _, err := CreateVehicle(context.Background(), store, store, testLogger(), VehicleRequest{Name: "Truck 1", RegistrationNumber: "DHK-1234", OwnerId: owner.Id}); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if _, err := CreateVehicle(context.Background(), store, store, testLogger(), VehicleRequest{Name: "Truck 2", RegistrationNumber: "DHK-1234", OwnerId: other.Id}); err != nil {
		t.Fatalf("uniqueness is per owner; create for another owner failed: %v", err)
	}
}

func TestCreateVehicle_UnknownOwnerIsNotFound(t *testing.T) {
	store := newFakeStore()

	_, err := CreateVehicle(context.Background(), store, store, testLogger(), VehicleRequest{
		Name:               "Truck 1",
		RegistrationNumber: "DHK-1234",
		OwnerId:            99,
	})
	if KindOf(err) != KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateVehicle_MissingFieldsRejected(t *testing.T) {
	store := newFakeStore()
	owner := seedOwner(store)

	_, err := CreateVehicle(context.Background(), store, store, testLogger(), VehicleRequest{OwnerId: owner.Id})
	if KindOf(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeleteVehicle_RemovesByRegistrationAndOwner(t *testing.T) {
	store := newFakeStore()
	owner := seedOwner(store)
	if _, err := CreateVehicle(context.Background(), store, store, testLogger(), VehicleRequest{Name: "Truck 1", RegistrationNumber: "DHK-1234", OwnerId: owner.Id}); err != nil {
		t.Fatal(err)
	}

	if err := DeleteVehicle(context.Background(), store, testLogger(), "DHK-1234", owner.Id); err != nil {
		t.Fatalf("DeleteVehicle failed: %v", err)
	}
	if _, err := store.FindVehicle(context.Background(), "DHK-1234", owner.Id); err == nil {
		t.Fatal("vehicle still queryable after delete")
	}
}

func TestDeleteVehicle_UnknownVehicleIsNotFound(t *testing.T) {
	err := DeleteVehicle(context.Background(), newFakeStore(), testLogger(), "DHK-9999", 5)
	if KindOf(err) != KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
