package migration

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"github.com/stampcard-app/stampcard/stampcard/database/models"
)

// Migrator imports the legacy document-store export into Postgres.
// The old app kept program templates in a "restaurant" collection and
// per-user cards in "registered-restaurant"; both arrive either as
// mongodump BSON files or from a live staging database.
type Migrator struct {
	pgDB            *bun.DB
	dataDir         string
	programsPath    string
	membershipsPath string
	batchSize       int
	// Statistics tracking
	stats MigrationStats
	// Optional direct Mongo access
	mongoDB *mongo.Database
	// Mongo collection names (overrideable)
	collNames map[string]string
	// Tuning
	sleepBetween time.Duration
	// Optional: use pgx CopyFrom for fastest bulk inserts
	useCopy bool
	pool    *pgxpool.Pool
}

func NewMigrator(pgDB *bun.DB, dataDir string) *Migrator {
	return &Migrator{
		pgDB:            pgDB,
		dataDir:         dataDir,
		programsPath:    filepath.Join(dataDir, "restaurant.bson"),
		membershipsPath: filepath.Join(dataDir, "registered-restaurant.bson"),
		batchSize:       1000,
		stats: MigrationStats{
			Tables:    make(map[string]*TableStats),
			StartTime: time.Now(),
		},
		collNames: map[string]string{
			"programs":    "restaurant",
			"memberships": "registered-restaurant",
		},
	}
}

// SetBatchSize overrides the default batch size for inserts (useful for poolers/timeouts)
func (m *Migrator) SetBatchSize(size int) {
	if size > 0 {
		m.batchSize = size
	}
}

// SetSleepBetween sets an optional sleep between batch inserts (milliseconds)
func (m *Migrator) SetSleepBetween(ms int) {
	if ms > 0 {
		m.sleepBetween = time.Duration(ms) * time.Millisecond
	}
}

// SetUseCopy enables COPY FROM mode using pgx (fast path)
func (m *Migrator) SetUseCopy(v bool) { m.useCopy = v }

// UsePool sets the pgx pool for COPY operations
func (m *Migrator) UsePool(pool *pgxpool.Pool) { m.pool = pool }

// UseMongo points the migrator at a live database instead of dump files
func (m *Migrator) UseMongo(client *mongo.Client, dbName string) {
	if client != nil && dbName != "" {
		m.mongoDB = client.Database(dbName)
	}
}

// SetMongoCollectionName overrides the collection name for a given kind
func (m *Migrator) SetMongoCollectionName(kind, name string) {
	if m.collNames == nil {
		m.collNames = map[string]string{}
	}
	if kind != "" && name != "" {
		m.collNames[kind] = name
	}
}

func (m *Migrator) getColl(kind, defaultName string) *mongo.Collection {
	if m.mongoDB == nil {
		return nil
	}
	name := defaultName
	if v, ok := m.collNames[kind]; ok && v != "" {
		name = v
	}
	return m.mongoDB.Collection(name)
}

// MigrateAll imports both dump files. The two tables are independent
// (memberships carry a denormalized copy of the program fields and
// there is no foreign key), so the collections load concurrently.
func (m *Migrator) MigrateAll(ctx context.Context) error {
	logProgress("Starting BSON migration")
	logProgress(fmt.Sprintf("Data directory: %s", m.dataDir))

	if m.stats.Tables == nil {
		m.stats.Tables = make(map[string]*TableStats)
	}
	m.stats.StartTime = time.Now()
	m.stats.Tables["programs"] = &TableStats{TableName: "programs"}
	m.stats.Tables["memberships"] = &TableStats{TableName: "memberships"}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.MigratePrograms(ctx) })
	g.Go(func() error { return m.MigrateMemberships(ctx) })
	if err := g.Wait(); err != nil {
		return err
	}

	m.stats.EndTime = time.Now()
	if err := m.generateMigrationReport(); err != nil {
		slog.Error("Failed to generate migration report", "error", err)
	}

	logProgress("Migration completed successfully!")
	m.logFinalStats()
	return nil
}

// MigrateAllFromMongo migrates data directly from a live MongoDB database
func (m *Migrator) MigrateAllFromMongo(ctx context.Context) error {
	if m.mongoDB == nil {
		return fmt.Errorf("mongoDB not configured; call UseMongo first")
	}

	logProgress("Starting direct MongoDB migration")

	if m.stats.Tables == nil {
		m.stats.Tables = make(map[string]*TableStats)
	}
	m.stats.StartTime = time.Now()
	m.stats.Tables["programs"] = &TableStats{TableName: "programs"}
	m.stats.Tables["memberships"] = &TableStats{TableName: "memberships"}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return m.MigrateProgramsFromMongo(ctx) })
	g.Go(func() error { return m.MigrateMembershipsFromMongo(ctx) })
	if err := g.Wait(); err != nil {
		return err
	}

	m.stats.EndTime = time.Now()
	if err := m.generateMigrationReport(); err != nil {
		slog.Error("Failed to generate migration report", "error", err)
	}

	logProgress("Direct Mongo migration completed successfully!")
	m.logFinalStats()
	return nil
}

// readBSONFile walks a mongodump file document by document. Each BSON
// document starts with an int32 length that includes the 4 length
// bytes themselves.
func readBSONFile(path string, processDoc func([]byte) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open BSON file: %w", err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	for {
		lengthBytes := make([]byte, 4)
		_, err := io.ReadFull(reader, lengthBytes)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read document length: %w", err)
		}

		length := int32(binary.LittleEndian.Uint32(lengthBytes))
		if length <= 4 {
			return fmt.Errorf("invalid document length: %d", length)
		}

		docBytes := make([]byte, length-4)
		if _, err := io.ReadFull(reader, docBytes); err != nil {
			return fmt.Errorf("failed to read document bytes: %w", err)
		}

		if err := processDoc(append(lengthBytes, docBytes...)); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migrator) MigratePrograms(ctx context.Context) error {
	slog.Info("Starting program migration",
		"path", m.programsPath,
		"batchSize", m.batchSize)

	var mongoPrograms []MongoProgram
	err := readBSONFile(m.programsPath, func(doc []byte) error {
		var mp MongoProgram
		if err := bson.Unmarshal(doc, &mp); err != nil {
			return fmt.Errorf("failed to decode program BSON: %w", err)
		}
		mongoPrograms = append(mongoPrograms, mp)
		return nil
	})
	if err != nil {
		slog.Error("Failed to read programs BSON file", "error", err)
		return err
	}

	slog.Info("Loaded programs from BSON file", "count", len(mongoPrograms))
	return m.processPrograms(ctx, mongoPrograms)
}

func (m *Migrator) processPrograms(ctx context.Context, mongoPrograms []MongoProgram) error {
	ts := m.tableStats("programs")

	var programs []*models.Program
	for _, mp := range mongoPrograms {
		ts.Processed++
		program, err := m.convertProgram(mp)
		if err != nil {
			m.skipRecord(ts, err.Error(), mp)
			continue
		}
		programs = append(programs, program)
	}

	total := len(programs)
	for i := 0; i < total; i += m.batchSize {
		end := i + m.batchSize
		if end > total {
			end = total
		}
		batch := programs[i:end]

		slog.Info("Inserting batch of programs",
			"batchSize", len(batch),
			"progress", fmt.Sprintf("%d/%d", end, total))

		if err := m.batchInsertPrograms(ctx, batch); err != nil {
			ts.Errors += len(batch)
			return err
		}
		ts.Successful += len(batch)
		if m.sleepBetween > 0 {
			time.Sleep(m.sleepBetween)
		}
	}

	logProgress(fmt.Sprintf("Program migration completed: %d input records, %d imported, %d skipped",
		len(mongoPrograms), total, ts.Skipped))
	return nil
}

func (m *Migrator) MigrateMemberships(ctx context.Context) error {
	slog.Info("Starting membership migration",
		"path", m.membershipsPath,
		"batchSize", m.batchSize)

	var mongoMemberships []MongoMembership
	err := readBSONFile(m.membershipsPath, func(doc []byte) error {
		var mm MongoMembership
		if err := bson.Unmarshal(doc, &mm); err != nil {
			return fmt.Errorf("failed to decode membership BSON: %w", err)
		}
		mongoMemberships = append(mongoMemberships, mm)
		return nil
	})
	if err != nil {
		slog.Error("Failed to read memberships BSON file", "error", err)
		return err
	}

	slog.Info("Loaded memberships from BSON file", "count", len(mongoMemberships))
	return m.processMemberships(ctx, mongoMemberships)
}

func (m *Migrator) processMemberships(ctx context.Context, mongoMemberships []MongoMembership) error {
	ts := m.tableStats("memberships")

	var memberships []*models.Membership
	for _, mm := range mongoMemberships {
		ts.Processed++
		membership, err := m.convertMembership(mm)
		if err != nil {
			m.skipRecord(ts, err.Error(), mm)
			continue
		}
		memberships = append(memberships, membership)
	}

	total := len(memberships)
	for i := 0; i < total; i += m.batchSize {
		end := i + m.batchSize
		if end > total {
			end = total
		}
		batch := memberships[i:end]

		slog.Info("Inserting batch of memberships",
			"batchSize", len(batch),
			"progress", fmt.Sprintf("%d/%d", end, total))

		if err := m.batchInsertMemberships(ctx, batch); err != nil {
			ts.Errors += len(batch)
			return err
		}
		ts.Successful += len(batch)
		if m.sleepBetween > 0 {
			time.Sleep(m.sleepBetween)
		}
	}

	logProgress(fmt.Sprintf("Membership migration completed: %d input records, %d imported, %d skipped",
		len(mongoMemberships), total, ts.Skipped))
	return nil
}

// MigrateProgramsFromMongo imports program templates from live Mongo
func (m *Migrator) MigrateProgramsFromMongo(ctx context.Context) error {
	col := m.getColl("programs", "restaurant")
	if col == nil {
		return nil
	}
	cur, err := col.Find(ctx, bson.D{})
	if err != nil {
		logProgress("programs collection not found or query failed; skipping")
		return nil
	}
	defer cur.Close(ctx)

	var docs []MongoProgram
	for cur.Next(ctx) {
		var mp MongoProgram
		if err := cur.Decode(&mp); err != nil {
			continue
		}
		docs = append(docs, mp)
	}
	if err := cur.Err(); err != nil {
		return err
	}
	return m.processPrograms(ctx, docs)
}

// MigrateMembershipsFromMongo imports cards from live Mongo
func (m *Migrator) MigrateMembershipsFromMongo(ctx context.Context) error {
	col := m.getColl("memberships", "registered-restaurant")
	if col == nil {
		return nil
	}
	cur, err := col.Find(ctx, bson.D{})
	if err != nil {
		logProgress("memberships collection not found or query failed; skipping")
		return nil
	}
	defer cur.Close(ctx)

	var docs []MongoMembership
	for cur.Next(ctx) {
		var mm MongoMembership
		if err := cur.Decode(&mm); err != nil {
			continue
		}
		docs = append(docs, mm)
	}
	if err := cur.Err(); err != nil {
		return err
	}
	return m.processMemberships(ctx, docs)
}

func (m *Migrator) batchInsertPrograms(ctx context.Context, programs []*models.Program) error {
	startTime := time.Now()

	_, err := m.pgDB.NewInsert().
		Model(&programs).
		On("CONFLICT (id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("image_url = EXCLUDED.image_url").
		Set("target_checkins = EXCLUDED.target_checkins").
		Set("reward = EXCLUDED.reward").
		Set("code = EXCLUDED.code").
		Set("checkin_code = EXCLUDED.checkin_code").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		slog.Error("Batch insert of programs failed",
			"error", err,
			"duration", time.Since(startTime))
		return fmt.Errorf("batch insert failed: %w", err)
	}
	return nil
}

func (m *Migrator) batchInsertMemberships(ctx context.Context, memberships []*models.Membership) error {
	startTime := time.Now()
	mode := "batch"
	if m.useCopy && m.pool != nil {
		mode = "copy-upsert"
	}
	slog.Info("Starting batch insert of memberships", "count", len(memberships), "mode", mode)

	if m.useCopy && m.pool != nil {
		if err := m.copyUpsertMemberships(ctx, memberships); err == nil {
			slog.Info("Memberships copy-upsert completed", "count", len(memberships), "took", time.Since(startTime))
			return nil
		} else {
			slog.Warn("Memberships COPY path failed; falling back to standard upsert", "error", err)
		}
	}

	_, err := m.pgDB.NewInsert().
		Model(&memberships).
		On("CONFLICT (id) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("image_url = EXCLUDED.image_url").
		Set("reward = EXCLUDED.reward").
		Set("phone = EXCLUDED.phone").
		Set("current_checkins = EXCLUDED.current_checkins").
		Set("target_checkins = EXCLUDED.target_checkins").
		Set("status = EXCLUDED.status").
		Set("last_checkin = EXCLUDED.last_checkin").
		Set("program_id = EXCLUDED.program_id").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		slog.Error("Batch insert of memberships failed",
			"error", err,
			"duration", time.Since(startTime))
		return fmt.Errorf("batch insert failed: %w", err)
	}

	slog.Info("Batch insert of memberships completed",
		"count", len(memberships),
		"took", time.Since(startTime))
	return nil
}

// copyUpsertMemberships loads rows through a temp table with pgx
// CopyFrom, then upserts into memberships in one statement.
func (m *Migrator) copyUpsertMemberships(ctx context.Context, rows []*models.Membership) error {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `CREATE TEMP TABLE tmp_memberships
		(LIKE memberships INCLUDING DEFAULTS) ON COMMIT DROP`)
	if err != nil {
		return err
	}

	cols := []string{
		"id", "title", "image_url", "reward", "phone",
		"current_checkins", "target_checkins", "status",
		"last_checkin", "program_id", "created_at", "updated_at",
	}
	data := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		data = append(data, []interface{}{
			r.ID, r.Title, r.ImageURL, r.Reward, r.Phone,
			r.CurrentCheckins, r.TargetCheckins, r.Status,
			r.LastCheckin, r.ProgramID, r.CreatedAt, r.UpdatedAt,
		})
	}

	if _, err := conn.Conn().CopyFrom(ctx, pgx.Identifier{"tmp_memberships"}, cols, pgx.CopyFromRows(data)); err != nil {
		return err
	}

	_, err = conn.Exec(ctx, `INSERT INTO memberships
		SELECT * FROM tmp_memberships
		ON CONFLICT (id) DO UPDATE SET
			current_checkins = EXCLUDED.current_checkins,
			status = EXCLUDED.status,
			last_checkin = EXCLUDED.last_checkin,
			updated_at = EXCLUDED.updated_at`)
	return err
}

func (m *Migrator) tableStats(name string) *TableStats {
	ts, ok := m.stats.Tables[name]
	if !ok {
		ts = &TableStats{TableName: name}
		m.stats.Tables[name] = ts
	}
	return ts
}

func (m *Migrator) skipRecord(ts *TableStats, reason string, record interface{}) {
	ts.Skipped++
	data, _ := json.Marshal(record)
	ts.SkippedRecords = append(ts.SkippedRecords, SkippedRecord{
		Reason:    reason,
		Data:      string(data),
		Timestamp: time.Now(),
	})
	slog.Warn("Skipping malformed record",
		"table", ts.TableName,
		"reason", reason)
}

func (m *Migrator) generateMigrationReport() error {
	for _, ts := range m.stats.Tables {
		m.stats.TotalProcessed += ts.Processed
		m.stats.TotalSkipped += ts.Skipped
		m.stats.TotalErrors += ts.Errors
	}

	report, err := json.MarshalIndent(m.stats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal migration report: %w", err)
	}

	path := filepath.Join(m.dataDir, fmt.Sprintf("migration_report_%s.json", time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, report, 0644); err != nil {
		return fmt.Errorf("failed to write migration report: %w", err)
	}
	logProgress(fmt.Sprintf("Migration report written to %s", path))
	return nil
}

func (m *Migrator) logFinalStats() {
	for name, ts := range m.stats.Tables {
		slog.Info("Migration table summary",
			"table", name,
			"processed", ts.Processed,
			"successful", ts.Successful,
			"skipped", ts.Skipped,
			"errors", ts.Errors)
	}
	slog.Info("Migration finished",
		"duration", m.stats.EndTime.Sub(m.stats.StartTime).String())
}

func logProgress(message string) {
	slog.Info(message, "service", "StampCard Migration")
}
