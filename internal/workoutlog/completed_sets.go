package workoutlog

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// CompletedSetRow is one committed phase record, ready for insertion into
// the completed_sets table.
type CompletedSetRow struct {
	SessionID    string     `json:"session_id"`
	ProfileID    string     `json:"profile_id"`
	WorkoutLogID string     `json:"workout_log_id"`
	ExerciseID   string     `json:"exercise_id"`
	SetType      string     `json:"set_type"`
	Phase        int        `json:"phase"`
	WeightKg     float64    `json:"weight_kg"`
	Reps         int        `json:"reps"`
	RPE          *float64   `json:"rpe,omitempty"`
	Completed    bool       `json:"completed"`
	RecordedAt   time.Time  `json:"recorded_at"`
}

// InsertCompletedSets batch-inserts a finished session's history. Returns
// count inserted. Re-committing the same session is harmless: the unique
// (session_id, phase) pair makes the insert idempotent.
func (db *DB) InsertCompletedSets(ctx context.Context, rows []CompletedSetRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `INSERT INTO completed_sets (session_id, profile_id, workout_log_id,
		exercise_id, set_type, phase, weight_kg, reps, rpe, completed, recorded_at) VALUES `
	args := make([]any, 0, len(rows)*11)
	valueStrings := make([]string, 0, len(rows))

	for i, r := range rows {
		base := i * 11
		valueStrings = append(valueStrings, fmt.Sprintf(
			"($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6,
			base+7, base+8, base+9, base+10, base+11,
		))
		args = append(args, r.SessionID, r.ProfileID, r.WorkoutLogID, r.ExerciseID,
			r.SetType, r.Phase, r.WeightKg, r.Reps, r.RPE, r.Completed, r.RecordedAt)
	}

	query += strings.Join(valueStrings, ",") + " ON CONFLICT DO NOTHING"

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("inserting completed sets: %w", err)
	}
	return tag.RowsAffected(), nil
}

// QueryCompletedSets retrieves committed records in a date range, optionally
// filtered by exercise id.
func (db *DB) QueryCompletedSets(ctx context.Context, start, end time.Time, exerciseID string) ([]CompletedSetRow, error) {
	query := `SELECT session_id, profile_id, workout_log_id, exercise_id, set_type,
		 phase, weight_kg, reps, rpe, completed, recorded_at
		 FROM completed_sets
		 WHERE recorded_at >= $1 AND recorded_at < $2`
	args := []any{start, end}
	if exerciseID != "" {
		query += ` AND exercise_id = $3`
		args = append(args, exerciseID)
	}
	query += ` ORDER BY recorded_at DESC, phase ASC`

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying completed sets: %w", err)
	}
	defer rows.Close()

	var result []CompletedSetRow
	for rows.Next() {
		var r CompletedSetRow
		if err := rows.Scan(&r.SessionID, &r.ProfileID, &r.WorkoutLogID, &r.ExerciseID,
			&r.SetType, &r.Phase, &r.WeightKg, &r.Reps, &r.RPE, &r.Completed, &r.RecordedAt); err != nil {
			return nil, fmt.Errorf("scanning completed set: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
