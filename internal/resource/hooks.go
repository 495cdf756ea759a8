package resource

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"

	"github.com/chatadmin/admin-console/internal/models"
	"github.com/chatadmin/admin-console/internal/pkg/apperr"
	"github.com/chatadmin/admin-console/internal/repository"
)

func hashPassword(doc bson.M) error {
	raw, ok := doc["password"]
	if !ok {
		return nil
	}
	pw, ok := raw.(string)
	if !ok || pw == "" {
		delete(doc, "password")
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	doc["password"] = string(hash)
	return nil
}

func hashPasswordOnCreate(_ context.Context, _ repository.Store, doc bson.M) error {
	return hashPassword(doc)
}

func hashPasswordOnUpdate(_ context.Context, _ repository.Store, _ bson.M, patch bson.M) error {
	return hashPassword(patch)
}

func permissionsArg(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case map[string]any:
		return m, true
	}
	return nil, false
}

func mergePermissionsOnCreate(_ context.Context, _ repository.Store, doc bson.M) error {
	raw, _ := permissionsArg(doc["permissions"])
	doc["permissions"] = models.MergePermissions(raw).ToDocument()
	return nil
}

// mergePermissionsOnUpdate overlays the patch tree on the stored tree.
func mergePermissionsOnUpdate(_ context.Context, _ repository.Store, current, patch bson.M) error {
	incoming, ok := permissionsArg(patch["permissions"])
	if !ok {
		if _, present := patch["permissions"]; present {
			return apperr.Validation("permissions must be an object")
		}
		return nil
	}
	base, _ := permissionsArg(current["permissions"])
	patch["permissions"] = models.MergePermissions(base).Overlay(incoming).ToDocument()
	return nil
}

func usersWithRole(ctx context.Context, store repository.Store, name string) (int64, error) {
	n, err := store.Count(ctx, repository.CollectionUsers, bson.M{"role": name})
	if err != nil {
		return 0, apperr.Upstream(err, "count users with role %s", name)
	}
	return n, nil
}

// guardRoleInUse refuses to delete a role still referenced by users.
func guardRoleInUse(ctx context.Context, store repository.Store, role bson.M) error {
	name, _ := role["name"].(string)
	n, err := usersWithRole(ctx, store, name)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflict("Cannot delete role: %d user(s) still assigned to role %s", n, name)
	}
	return nil
}

// guardRoleRename refuses to rename a role still referenced by users.
func guardRoleRename(ctx context.Context, store repository.Store, current, patch bson.M) error {
	raw, ok := patch["name"]
	if !ok {
		return nil
	}
	oldName, _ := current["name"].(string)
	if newName, _ := raw.(string); newName == oldName {
		return nil
	}
	n, err := usersWithRole(ctx, store, oldName)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflict("Cannot rename role: %d user(s) still assigned to role %s", n, oldName)
	}
	return nil
}

func updateRole(ctx context.Context, store repository.Store, current, patch bson.M) error {
	if err := guardRoleRename(ctx, store, current, patch); err != nil {
		return err
	}
	return mergePermissionsOnUpdate(ctx, store, current, patch)
}

// assignUUID always replaces field with a fresh UUID; client values are discarded.
func assignUUID(field string) Hook {
	return func(_ context.Context, _ repository.Store, doc bson.M) error {
		doc[field] = uuid.NewString()
		return nil
	}
}

// assignAgentID always generates a fresh id; client ids are stripped before hooks run.
func assignAgentID(_ context.Context, _ repository.Store, doc bson.M) error {
	id, err := models.NewAgentID()
	if err != nil {
		return err
	}
	doc[KeyAgent] = id
	return nil
}
