package sqlite

import (
	"context"
	"time"
)

type rolesRepo struct {
	db dbtx
}

func (r *rolesRepo) ListRoleNamesForUser(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = ? AND ur.removed_at IS NULL
		ORDER BY r.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *rolesRepo) CreateRole(ctx context.Context, name string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO roles (name, created_at) VALUES (?, ?) RETURNING id`, name, ts(time.Now()),
	).Scan(&id)
	if err != nil {
		return 0, mapConstraint(err)
	}
	return id, nil
}

func (r *rolesRepo) AssignRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_id, assigned_at) VALUES (?, ?, ?)`,
		userID, roleID, ts(time.Now()))
	return mapConstraint(err)
}

func (r *rolesRepo) RemoveRole(ctx context.Context, userID, roleID int64) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE user_roles SET removed_at = ? WHERE user_id = ? AND role_id = ? AND removed_at IS NULL`,
		ts(time.Now()), userID, roleID))
}
