package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ionutmarisca/School-Timetable-AI/internal/domain"
)

func (r *Repository) InsertTimetableInput(input *domain.TimetableInput) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, room := range input.Rooms {
		query := `INSERT INTO rooms (id, number, capacity) VALUES ($1, $2, $3)`
		if _, err := tx.ExecContext(ctx, query, room.ID, room.Number, room.Capacity); err != nil {
			return err
		}
	}

	for _, timeslot := range input.Timeslots {
		query := `INSERT INTO timeslots (id, label) VALUES ($1, $2)`
		if _, err := tx.ExecContext(ctx, query, timeslot.ID, timeslot.Label); err != nil {
			return err
		}
	}

	for _, professor := range input.Professors {
		query := `INSERT INTO professors (id, name) VALUES ($1, $2)`
		if _, err := tx.ExecContext(ctx, query, professor.ID, professor.Name); err != nil {
			return err
		}
	}

	for _, module := range input.Modules {
		query := `INSERT INTO modules (id, code, name) VALUES ($1, $2, $3)`
		if _, err := tx.ExecContext(ctx, query, module.ID, module.Code, module.Name); err != nil {
			return err
		}

		for _, professorID := range module.ProfessorIDs {
			query := `INSERT INTO module_professors (module_id, professor_id) VALUES ($1, $2)`
			if _, err := tx.ExecContext(ctx, query, module.ID, professorID); err != nil {
				return err
			}
		}
	}

	for _, group := range input.Groups {
		query := `INSERT INTO student_groups (id, size) VALUES ($1, $2)`
		if _, err := tx.ExecContext(ctx, query, group.ID, group.Size); err != nil {
			return err
		}

		// position 保证读取时课程顺序与插入时一致，染色体的基因顺序依赖它
		for position, moduleID := range group.ModuleIDs {
			query := `INSERT INTO group_modules (group_id, module_id, position) VALUES ($1, $2, $3)`
			if _, err := tx.ExecContext(ctx, query, group.ID, moduleID, position); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetTimetableInput() (*domain.TimetableInput, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	input := &domain.TimetableInput{}

	// 教室
	rows, err := r.dbpool.QueryContext(ctx, `SELECT id, number, capacity FROM rooms ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var room domain.Room
		if err := rows.Scan(&room.ID, &room.Number, &room.Capacity); err != nil {
			return nil, err
		}
		input.Rooms = append(input.Rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// 时间段
	rows, err = r.dbpool.QueryContext(ctx, `SELECT id, label FROM timeslots ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var timeslot domain.Timeslot
		if err := rows.Scan(&timeslot.ID, &timeslot.Label); err != nil {
			return nil, err
		}
		input.Timeslots = append(input.Timeslots, timeslot)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// 教师
	rows, err = r.dbpool.QueryContext(ctx, `SELECT id, name FROM professors ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var professor domain.Professor
		if err := rows.Scan(&professor.ID, &professor.Name); err != nil {
			return nil, err
		}
		input.Professors = append(input.Professors, professor)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// 课程及其教师
	modules, err := r.getModules(ctx)
	if err != nil {
		return nil, err
	}
	input.Modules = modules

	// 小组及其课程
	groups, err := r.getGroups(ctx)
	if err != nil {
		return nil, err
	}
	input.Groups = groups

	return input, nil
}

func (r *Repository) getModules(ctx context.Context) ([]domain.Module, error) {
	query := `
		SELECT m.id, m.code, m.name, mp.professor_id
		FROM modules m
		LEFT JOIN module_professors mp ON m.id = mp.module_id
		ORDER BY m.id, mp.professor_id
	`

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	modules := []domain.Module{}
	for rows.Next() {
		var row struct {
			id          int
			code        string
			name        string
			professorID sql.NullInt64
		}

		if err := rows.Scan(&row.id, &row.code, &row.name, &row.professorID); err != nil {
			return nil, err
		}

		// 结果按课程 id 排序，同一门课程的行是连续的
		if len(modules) == 0 || modules[len(modules)-1].ID != row.id {
			modules = append(modules, domain.Module{
				ID:           row.id,
				Code:         row.code,
				Name:         row.name,
				ProfessorIDs: []int{},
			})
		}

		if row.professorID.Valid {
			last := &modules[len(modules)-1]
			last.ProfessorIDs = append(last.ProfessorIDs, int(row.professorID.Int64))
		}
	}

	return modules, rows.Err()
}

func (r *Repository) getGroups(ctx context.Context) ([]domain.Group, error) {
	query := `
		SELECT g.id, g.size, gm.module_id
		FROM student_groups g
		LEFT JOIN group_modules gm ON g.id = gm.group_id
		ORDER BY g.id, gm.position
	`

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := []domain.Group{}
	for rows.Next() {
		var row struct {
			id       int
			size     int
			moduleID sql.NullInt64
		}

		if err := rows.Scan(&row.id, &row.size, &row.moduleID); err != nil {
			return nil, err
		}

		if len(groups) == 0 || groups[len(groups)-1].ID != row.id {
			groups = append(groups, domain.Group{
				ID:        row.id,
				Size:      row.size,
				ModuleIDs: []int{},
			})
		}

		if row.moduleID.Valid {
			last := &groups[len(groups)-1]
			last.ModuleIDs = append(last.ModuleIDs, int(row.moduleID.Int64))
		}
	}

	return groups, rows.Err()
}
