package postgres

import "context"

func (s *Store) TruncateUsers(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `TRUNCATE users`)
	return err
}
