package postgres

import "context"

type rolesRepo struct {
	db dbtx
}

func (r *rolesRepo) ListRoleNamesForUser(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1 AND ur.removed_at IS NULL
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
	if err := r.db.QueryRowContext(ctx,
		`INSERT INTO roles (name) VALUES ($1) RETURNING id`, name,
	).Scan(&id); err != nil {
		return 0, mapConstraint(err)
	}
	return id, nil
}

func (r *rolesRepo) AssignRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`, userID, roleID)
	return mapConstraint(err)
}

func (r *rolesRepo) RemoveRole(ctx context.Context, userID, roleID int64) error {
	return expectOne(r.db.ExecContext(ctx,
		`UPDATE user_roles SET removed_at = now() WHERE user_id = $1 AND role_id = $2 AND removed_at IS NULL`,
		userID, roleID))
}
