package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"course-tutor/internal/config"
	"course-tutor/internal/db"
	"course-tutor/internal/extract"
	"course-tutor/internal/helper"
	"course-tutor/internal/processing"
	"course-tutor/internal/provider"
	"course-tutor/internal/queue"
	"course-tutor/internal/search"
	"course-tutor/internal/tutor"
	"course-tutor/internal/usercontext"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	filePath := flag.String("file", "", "Path to a material file to upload and process")
	courseID := flag.String("course", "", "Course id (uuid)")
	userID := flag.String("user", "", "User id (uuid), required for -query")
	query := flag.String("query", "", "Question for the tutor")
	retryID := flag.String("retry", "", "Material id to retry processing for")
	dryRun := flag.Bool("dry-run", false, "Print the retrieved excerpts and context without calling the chat model")
	flag.Parse()

	switch {
	case *filePath != "":
		uploadMaterial(context.Background(), *filePath, *courseID)
	case *retryID != "":
		retryMaterial(context.Background(), *retryID)
	case *query != "":
		askTutor(context.Background(), *query, *courseID, *userID, *dryRun)
	default:
		log.Fatal().Msg("Provide a material via -file, a question via -query, or a material id via -retry")
	}
}

type app struct {
	cfg       *config.Config
	bdb       *bun.DB
	materials *db.MaterialRepo
	learners  *db.LearnerRepo
	ai        provider.AIProvider
	searchSvc *search.Service
	indexer   processing.Indexer
}

func setup(ctx context.Context) *app {
	cfg, err := config.LoadConfig(configFilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	sqldb, err := db.ConnectDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	bdb := db.NewDB(sqldb, cfg.Database.Debug)

	if err := db.InitDB(ctx, bdb, cfg.Provider.VectorSize); err != nil {
		log.Fatal().Err(err).Msg("Error initializing database")
	}

	ai, err := provider.New(cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing AI provider")
	}

	materials := db.NewMaterialRepo(bdb)
	learners := db.NewLearnerRepo(bdb)

	var (
		gw      search.Gateway
		indexer processing.Indexer
	)
	switch cfg.RAG.VectorStore {
	case "memory":
		mem, err := search.NewMemoryGateway(cfg.RAG.StorePath, cfg.RAG.ExcerptLength, log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("Error creating vector store")
		}
		gw = mem
		indexer = mem
	default:
		gw = search.NewPostgresGateway(materials, cfg.RAG.ExcerptLength, log.Logger)
	}

	return &app{
		cfg:       cfg,
		bdb:       bdb,
		materials: materials,
		learners:  learners,
		ai:        ai,
		searchSvc: search.NewService(gw, ai, cfg.RAG.SearchLimit, log.Logger),
		indexer:   indexer,
	}
}

func (a *app) close() {
	if err := a.bdb.Close(); err != nil {
		log.Warn().Err(err).Msg("Error closing database")
	}
}

func uploadMaterial(ctx context.Context, filePath, courseID string) {
	a := setup(ctx)
	defer a.close()

	course := parseID(courseID, "course")

	stat, err := os.Stat(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error reading material file")
	}

	// The upload transport normally creates this row; the CLI plays that
	// role here.
	m := &db.Material{
		CourseID:    course,
		Name:        filepath.Base(filePath),
		StoragePath: filePath,
		MimeType:    extract.DetectMime(filePath),
		Size:        stat.Size(),
	}
	if err := a.materials.Create(ctx, m); err != nil {
		log.Fatal().Err(err).Msg("Error creating material row")
	}
	log.Info().Stringer("material_id", m.ID).Str("mime_type", m.MimeType).Msg("Material created")

	svc := processing.NewService(a.materials, a.ai, processing.DiskStore{}, a.indexer, log.Logger)
	q := queue.New(svc, a.cfg.Queue.Workers, a.cfg.Queue.Buffer, log.Logger)
	if err := q.Enqueue(m.ID); err != nil {
		log.Fatal().Err(err).Msg("Error enqueueing material")
	}
	// Drain before the process exits; a server would keep the queue running.
	q.Close()

	processed, err := a.materials.Get(ctx, m.ID)
	if err != nil {
		log.Fatal().Err(err).Msg("Error reading back material")
	}
	helper.PrettyPrint(map[string]any{
		"material_id": processed.ID,
		"status":      processed.ProcessingStatus,
		"error":       processed.ErrorMessage,
	})
}

func retryMaterial(ctx context.Context, materialID string) {
	a := setup(ctx)
	defer a.close()

	id := parseID(materialID, "material")

	svc := processing.NewService(a.materials, a.ai, processing.DiskStore{}, a.indexer, log.Logger)
	q := queue.New(svc, a.cfg.Queue.Workers, a.cfg.Queue.Buffer, log.Logger)
	if err := q.Retry(ctx, id); err != nil {
		log.Fatal().Err(err).Msg("Error retrying material")
	}
	q.Close()

	processed, err := a.materials.Get(ctx, id)
	if err != nil {
		log.Fatal().Err(err).Msg("Error reading back material")
	}
	log.Info().Stringer("material_id", id).Str("status", processed.ProcessingStatus).Msg("Retry finished")
}

func askTutor(ctx context.Context, query, courseID, userID string, dryRun bool) {
	a := setup(ctx)
	defer a.close()

	course := parseID(courseID, "course")
	user := parseID(userID, "user")

	aggregator := usercontext.NewAggregator(a.learners, a.cfg.Context, log.Logger)

	if dryRun {
		uctx := aggregator.Get(ctx, user, course)
		excerpts := a.searchSvc.SearchText(ctx, course, query, 0)
		helper.PrettyPrint(uctx)
		helper.PrettyPrint(excerpts)
		return
	}

	t := tutor.New(aggregator, a.searchSvc, a.ai, a.cfg.RAG.SearchLimit, log.Logger)
	answer, err := t.Answer(ctx, user, course, query)
	if err != nil {
		log.Fatal().Err(err).Msg("Error querying")
	}

	// The chat transport owns persisting the turn; again the CLI is that
	// transport.
	if err := a.learners.StoreChatTurn(ctx, course, user, query, answer.Content); err != nil {
		log.Warn().Err(err).Msg("Error storing chat turn")
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", answer.Query)

	log.Info().Msg("Sources: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	for _, ex := range answer.Excerpts {
		fmt.Printf("%s (%.3f)\n", ex.Name, ex.Similarity)
	}
	fmt.Println()

	log.Info().Msg("Tutor: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", answer.Content)
}

func parseID(raw, kind string) uuid.UUID {
	if raw == "" {
		log.Fatal().Msgf("Please provide a %s id", kind)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		log.Fatal().Err(err).Msgf("Invalid %s id", kind)
	}
	return id
}
