package workflow

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/matreq-backend/pkg/db/models"
	"github.com/angelmondragon/matreq-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/matreq-backend/pkg/errors"
)

func TestCanAddRequisition(t *testing.T) {
	draft := models.RequisitionTable{Status: enums.TableStatusDraft}
	rejected := models.RequisitionTable{Status: enums.TableStatusRejected}
	approved := models.RequisitionTable{Status: enums.TableStatusApproved}
	submitted := models.RequisitionTable{Status: enums.TableStatusSubmitted}

	require.NoError(t, CanAddRequisition(draft, 0))
	require.NoError(t, CanAddRequisition(rejected, 0))
	require.NoError(t, CanAddRequisition(approved, 1))

	err := CanAddRequisition(approved, 0)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePolicyWarning))

	err = CanAddRequisition(submitted, 3)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestValidateForSubmit(t *testing.T) {
	table := models.RequisitionTable{Status: enums.TableStatusDraft, ItemCount: 2}
	complete := models.Requisition{ID: uuid.New(), SKUCode: "A", Supplier: "Acme", Brand: "Best", Unit: "box"}
	incomplete := models.Requisition{ID: uuid.New(), RequisitionNumber: "MR-260105-001", SKUCode: "B", Supplier: " ", Brand: "Best"}

	require.NoError(t, ValidateForSubmit(table, []models.Requisition{complete, complete}))

	err := ValidateForSubmit(table, []models.Requisition{complete, incomplete})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details := typed.Details().(map[string]any)
	rows := details["requisitions"].([]map[string]any)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"supplier", "unit"}, rows[0]["missing"])

	empty := models.RequisitionTable{Status: enums.TableStatusDraft}
	assert.True(t, pkgerrors.IsCode(ValidateForSubmit(empty, nil), pkgerrors.CodeValidation))

	submitted := models.RequisitionTable{Status: enums.TableStatusSubmitted, ItemCount: 1}
	assert.True(t, pkgerrors.IsCode(ValidateForSubmit(submitted, []models.Requisition{complete}), pkgerrors.CodeStateConflict))
}

func TestReviewGuards(t *testing.T) {
	assert.NoError(t, EnsureSubmitted(models.RequisitionTable{Status: enums.TableStatusSubmitted}))
	assert.True(t, pkgerrors.IsCode(EnsureSubmitted(models.RequisitionTable{Status: enums.TableStatusDraft}), pkgerrors.CodeStateConflict))
	assert.NoError(t, EnsureAdmin(enums.ActorRoleAdmin))
	assert.True(t, pkgerrors.IsCode(EnsureAdmin(enums.ActorRoleOperator), pkgerrors.CodeForbidden))
}

func TestParseChoice(t *testing.T) {
	c, err := ParseChoice("supplier", "Acme Foods", "")
	require.NoError(t, err)
	assert.Equal(t, "Acme Foods", c.Value())
	assert.False(t, c.IsCustom())

	c, err = ParseChoice("supplier", "other", "  Local Farm ")
	require.NoError(t, err)
	assert.Equal(t, "Local Farm", c.Value())
	assert.True(t, c.IsCustom())

	_, err = ParseChoice("brand", OtherSentinel, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestChoiceJSON(t *testing.T) {
	var plain Choice
	require.NoError(t, json.Unmarshal([]byte(`"Acme"`), &plain))
	assert.Equal(t, Known("Acme"), plain)

	var custom Choice
	require.NoError(t, json.Unmarshal([]byte(`{"value":"Farm","custom":true}`), &custom))
	assert.True(t, custom.IsCustom())

	out, err := json.Marshal(custom)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":"Farm","custom":true}`, string(out))
}

func TestStoreError(t *testing.T) {
	assert.Nil(t, StoreError(nil, "x", "op"))

	typed := pkgerrors.New(pkgerrors.CodeValidation, "bad")
	assert.Same(t, typed, StoreError(typed, "x", "op"))

	assert.True(t, pkgerrors.IsCode(StoreError(gorm.ErrRecordNotFound, "table not found", "op"), pkgerrors.CodeNotFound))
	assert.True(t, pkgerrors.IsCode(StoreError(errors.New("conn reset"), "x", "op"), pkgerrors.CodeDependency))
}
