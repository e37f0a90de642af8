package pets

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serenyx/internal/identity"
	"serenyx/internal/store"
	dErrors "serenyx/pkg/domain-errors"
	"serenyx/pkg/platform/audit"
)

func newTestService() *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store.NewInMemory(), audit.NewRecorder(16), logger)
}

func TestCreateAndGet(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	owner := identity.Subject{ID: "u1"}

	created, err := svc.Create(ctx, owner, CreatePetRequest{
		Name: "Rex", Type: TypeDog, Breed: "Labrador", Age: 24,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "u1", created.OwnerID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := svc.Get(ctx, owner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rex", got.Name)
	assert.Equal(t, TypeDog, got.Type)
}

func TestGetMasksForeignPets(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, identity.Subject{ID: "u1"}, CreatePetRequest{
		Name: "Rex", Type: TypeDog, Breed: "Labrador", Age: 24,
	})
	require.NoError(t, err)

	_, err = svc.Get(ctx, identity.Subject{ID: "u2"}, created.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound),
		"a foreign pet must read exactly like a missing one")

	_, err = svc.Get(ctx, identity.Subject{ID: "u2"}, "does-not-exist")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestUpdate(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	owner := identity.Subject{ID: "u1"}

	created, err := svc.Create(ctx, owner, CreatePetRequest{
		Name: "Rex", Type: TypeDog, Breed: "Labrador", Age: 24,
	})
	require.NoError(t, err)

	name := "Rexford"
	age := 25
	updated, err := svc.Update(ctx, owner, created.ID, UpdatePetRequest{Name: &name, Age: &age})
	require.NoError(t, err)
	assert.Equal(t, "Rexford", updated.Name)
	assert.Equal(t, 25, updated.Age)
	assert.Equal(t, "Labrador", updated.Breed, "unsupplied fields stay intact")

	t.Run("non-owner cannot update", func(t *testing.T) {
		_, err := svc.Update(ctx, identity.Subject{ID: "u3"}, created.ID, UpdatePetRequest{Name: &name})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestDelete(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	owner := identity.Subject{ID: "u1"}

	created, err := svc.Create(ctx, owner, CreatePetRequest{
		Name: "Rex", Type: TypeDog, Breed: "Labrador", Age: 24,
	})
	require.NoError(t, err)

	t.Run("non-owner cannot delete", func(t *testing.T) {
		err := svc.Delete(ctx, identity.Subject{ID: "u2"}, created.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	require.NoError(t, svc.Delete(ctx, owner, created.ID))
	_, err = svc.Get(ctx, owner, created.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestListScopedToOwner(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, identity.Subject{ID: "u1"}, CreatePetRequest{Name: "Rex", Type: TypeDog, Breed: "Labrador", Age: 24})
	require.NoError(t, err)
	_, err = svc.Create(ctx, identity.Subject{ID: "u1"}, CreatePetRequest{Name: "Bella", Type: TypeCat, Breed: "Siamese", Age: 12})
	require.NoError(t, err)
	_, err = svc.Create(ctx, identity.Subject{ID: "u2"}, CreatePetRequest{Name: "Milo", Type: TypeBird, Breed: "Parakeet", Age: 6})
	require.NoError(t, err)

	pets, err := svc.List(ctx, identity.Subject{ID: "u1"})
	require.NoError(t, err)
	assert.Len(t, pets, 2)

	pets, err = svc.List(ctx, identity.Subject{ID: "u3"})
	require.NoError(t, err)
	assert.Empty(t, pets)
}

func TestCreatePetRequestValidate(t *testing.T) {
	t.Run("valid payload passes", func(t *testing.T) {
		req := CreatePetRequest{Name: "Rex", Type: TypeDog, Breed: "Labrador", Age: 24}
		assert.NoError(t, req.Validate())
	})

	t.Run("every violation is reported", func(t *testing.T) {
		req := CreatePetRequest{Name: "", Type: "Dragon", Breed: "", Age: 500}
		err := req.Validate()
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Len(t, dErrors.Load(err), 4)
	})

	t.Run("bad photo URL and birth date", func(t *testing.T) {
		req := CreatePetRequest{
			Name: "Rex", Type: TypeDog, Breed: "Labrador", Age: 24,
			BirthDate: "yesterday",
			Photos:    []string{"not a url"},
		}
		err := req.Validate()
		require.Error(t, err)
		assert.Len(t, dErrors.Load(err), 2)
	})
}
