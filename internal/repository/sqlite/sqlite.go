package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"dialoguetree/internal/domain"
	"dialoguetree/internal/repository"
)

// Repository implements repository.Repository using SQLite
type Repository struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ repository.Repository = (*Repository)(nil)

// New creates a new SQLite repository. ":memory:" gives a private
// in-memory database.
func New(dbPath string, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; also keeps an in-memory database alive across calls
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db, logger: logger}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("database opened", zap.String("path", dbPath))
	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS nodes (
		id INTEGER PRIMARY KEY,
		type TEXT NOT NULL DEFAULT 'dialogue',
		x REAL NOT NULL DEFAULT 0,
		y REAL NOT NULL DEFAULT 0,
		text TEXT NOT NULL DEFAULT '',
		data JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS connections (
		id INTEGER PRIMARY KEY,
		from_id INTEGER NOT NULL,
		to_id INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS game_elements (
		id INTEGER PRIMARY KEY,
		data JSON NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_connections_from ON connections(from_id);
	CREATE INDEX IF NOT EXISTS idx_connections_to ON connections(to_id);
	`

	_, err := r.db.Exec(schema)
	return err
}

// ListNodes returns every node ordered by id
func (r *Repository) ListNodes(ctx context.Context) ([]domain.Node, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+nodeColumns+` FROM nodes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	nodes := make([]domain.Node, 0)
	for rows.Next() {
		var row nodeRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		n, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}
	return nodes, nil
}

// GetNode retrieves a single node by ID
func (r *Repository) GetNode(ctx context.Context, id int) (*domain.Node, error) {
	var row nodeRow
	err := r.db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id).Scan(row.scanArgs()...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query node: %w", err)
	}

	n, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// CreateNode inserts a node under its own id
func (r *Repository) CreateNode(ctx context.Context, node *domain.Node) error {
	args, err := nodeInsertArgs(node)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO nodes (`+nodeColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to insert node: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("node %d: %w", node.ID, repository.ErrConflict)
	}
	return nil
}

// UpdateNode overwrites an existing node
func (r *Repository) UpdateNode(ctx context.Context, node *domain.Node) error {
	args, err := nodeInsertArgs(node)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE nodes SET type = ?, x = ?, y = ?, text = ?, data = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, append(args[1:], node.ID)...)
	if err != nil {
		return fmt.Errorf("failed to update node: %w", err)
	}
	return nil
}

// DeleteNode removes a node. Its connections are left in place.
func (r *Repository) DeleteNode(ctx context.Context, id int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete node: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListConnections returns every connection ordered by id
func (r *Repository) ListConnections(ctx context.Context) ([]domain.Connection, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+connectionColumns+` FROM connections ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}
	defer rows.Close()

	conns := make([]domain.Connection, 0)
	for rows.Next() {
		var row connectionRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		conns = append(conns, row.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating connections: %w", err)
	}
	return conns, nil
}

// GetConnection retrieves a single connection by ID
func (r *Repository) GetConnection(ctx context.Context, id int) (*domain.Connection, error) {
	var row connectionRow
	err := r.db.QueryRowContext(ctx, `SELECT `+connectionColumns+` FROM connections WHERE id = ?`, id).Scan(row.scanArgs()...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query connection: %w", err)
	}
	conn := row.toDomain()
	return &conn, nil
}

// CreateConnection inserts a connection. A zero ID is replaced with the
// next free id.
func (r *Repository) CreateConnection(ctx context.Context, conn *domain.Connection) error {
	if conn.ID == 0 {
		res, err := r.db.ExecContext(ctx, `INSERT INTO connections (from_id, to_id) VALUES (?, ?)`, conn.From, conn.To)
		if err != nil {
			return fmt.Errorf("failed to insert connection: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read connection id: %w", err)
		}
		conn.ID = int(id)
		return nil
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO connections (`+connectionColumns+`) VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, conn.ID, conn.From, conn.To)
	if err != nil {
		return fmt.Errorf("failed to insert connection: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("connection %d: %w", conn.ID, repository.ErrConflict)
	}
	return nil
}

// DeleteConnection removes a connection
func (r *Repository) DeleteConnection(ctx context.Context, id int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM connections WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete connection: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListGameElements returns the registry rows ordered by id
func (r *Repository) ListGameElements(ctx context.Context) ([]domain.ElementsRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, data FROM game_elements ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query game elements: %w", err)
	}
	defer rows.Close()

	records := make([]domain.ElementsRecord, 0)
	for rows.Next() {
		var row elementsRow
		if err := rows.Scan(&row.ID, &row.DataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan game elements: %w", err)
		}
		rec, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game elements: %w", err)
	}
	return records, nil
}

// CreateGameElements inserts a registry row and sets its id
func (r *Repository) CreateGameElements(ctx context.Context, rec *domain.ElementsRecord) error {
	data, err := marshalElements(rec.GameElements)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `INSERT INTO game_elements (data) VALUES (?)`, data)
	if err != nil {
		return fmt.Errorf("failed to insert game elements: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read game elements id: %w", err)
	}
	rec.ID = int(id)
	return nil
}

// UpdateGameElements overwrites a registry row. It reports false when the
// row does not exist.
func (r *Repository) UpdateGameElements(ctx context.Context, rec *domain.ElementsRecord) (bool, error) {
	data, err := marshalElements(rec.GameElements)
	if err != nil {
		return false, err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE game_elements SET data = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, data, rec.ID)
	if err != nil {
		return false, fmt.Errorf("failed to update game elements: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Export loads the whole store as one document. The first registry row
// supplies the game elements.
func (r *Repository) Export(ctx context.Context) (*domain.Snapshot, error) {
	nodes, err := r.ListNodes(ctx)
	if err != nil {
		return nil, err
	}
	conns, err := r.ListConnections(ctx)
	if err != nil {
		return nil, err
	}
	records, err := r.ListGameElements(ctx)
	if err != nil {
		return nil, err
	}

	doc := &domain.Snapshot{Nodes: nodes, Connections: conns}
	if len(records) > 0 {
		elements := records[0].GameElements
		doc.GameElements = &elements
	}
	doc.Normalize()
	return doc, nil
}

// Import replaces all data with doc in one transaction
func (r *Repository) Import(ctx context.Context, doc *domain.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"connections", "nodes", "game_elements"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	nodeStmt, err := tx.PrepareContext(ctx, `INSERT INTO nodes (`+nodeColumns+`) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare node statement: %w", err)
	}
	defer nodeStmt.Close()

	for i := range doc.Nodes {
		args, err := nodeInsertArgs(&doc.Nodes[i])
		if err != nil {
			return err
		}
		if _, err := nodeStmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert node %d: %w", doc.Nodes[i].ID, err)
		}
	}

	connStmt, err := tx.PrepareContext(ctx, `INSERT INTO connections (`+connectionColumns+`) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare connection statement: %w", err)
	}
	defer connStmt.Close()

	for _, c := range doc.Connections {
		if _, err := connStmt.ExecContext(ctx, c.ID, c.From, c.To); err != nil {
			return fmt.Errorf("failed to insert connection %d: %w", c.ID, err)
		}
	}

	elements := domain.NewGameElements()
	if doc.GameElements != nil {
		elements = doc.GameElements
	}
	data, err := marshalElements(*elements)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO game_elements (id, data) VALUES (1, ?)`, data); err != nil {
		return fmt.Errorf("failed to insert game elements: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO metadata (key, value, updated_at) VALUES ('last_import', ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to store import timestamp: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Info("store imported",
		zap.Int("nodes", len(doc.Nodes)),
		zap.Int("connections", len(doc.Connections)),
	)
	return nil
}

// LastImport returns when the store was last replaced wholesale
func (r *Repository) LastImport(ctx context.Context) (time.Time, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = 'last_import'`).Scan(&value)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query last import: %w", err)
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to parse last import: %w", err)
	}
	return t, true, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
