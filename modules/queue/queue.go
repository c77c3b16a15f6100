package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bgentry/que-go"
	"github.com/jackc/pgx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zirius/shors/models"
	"github.com/zirius/shors/pg"
	"github.com/zirius/shors/store"
)

const (
	CaptureAnalyticsJob = "CaptureAnalyticsJob"

	insertTimeout = 10 * time.Second
)

// Enqueuer is satisfied by *que.Client.
type Enqueuer interface {
	Enqueue(j *que.Job) error
}

type EventInserter interface {
	InsertEvent(ctx context.Context, event *models.AnalyticsEvent) error
}

func DispatchCaptureAnalyticsJob(qc Enqueuer, event *models.AnalyticsEvent) error {
	enc, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "Marshalling the CaptureAnalyticsJob")
	}

	j := que.Job{
		Type: CaptureAnalyticsJob,
		Args: enc,
	}

	return errors.Wrap(qc.Enqueue(&j), "Enqueueing Job")
}

// Writer hands captured events to the worker process through que-go
// instead of writing them to the store directly.
type Writer struct {
	qc Enqueuer
}

func NewWriter(qc Enqueuer) *Writer {
	return &Writer{qc: qc}
}

func (w *Writer) InsertEvent(_ context.Context, event *models.AnalyticsEvent) error {
	return DispatchCaptureAnalyticsJob(w.qc, event)
}

// CaptureAnalyticsHandler stores the event carried by a CaptureAnalyticsJob.
// Jobs may run more than once, so an event that is already stored counts as
// done.
func CaptureAnalyticsHandler(inserter EventInserter) que.WorkFunc {
	return func(j *que.Job) error {
		var event models.AnalyticsEvent
		if err := json.Unmarshal(j.Args, &event); err != nil {
			return errors.Wrap(err, "Unable to unmarshal job arguments into AnalyticsEvent: "+string(j.Args))
		}

		ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
		defer cancel()

		err := inserter.InsertEvent(ctx, &event)
		if store.IsDuplicate(err) {
			log.WithField("event_id", event.EventID).Debug("Event already stored")
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "Storing analytics event")
		}

		log.WithFields(log.Fields{
			"id":       event.ID,
			"event_id": event.EventID,
		}).Debug("Stored analytics event")
		return nil
	}
}

// GetPgxPool based on the provided database URL
func GetPgxPool(dbURL string) (*pgx.ConnPool, error) {
	pgxcfg, err := pgx.ParseURI(dbURL)
	if err != nil {
		return nil, err
	}

	pgxpool, err := pgx.NewConnPool(pgx.ConnPoolConfig{
		ConnConfig:   pgxcfg,
		AfterConnect: que.PrepareStatements,
	})

	if err != nil {
		return nil, err
	}

	return pgxpool, nil
}

// Setup a *pgx.ConnPool and *que.Client
// This is here so that setup routines can easily be shared between web and
// workers. The que_jobs table is migrated first since the pool prepares its
// statements on connect, whichever backend holds the records.
func Setup(dbURL string) (*pgx.ConnPool, *que.Client, error) {
	if err := pg.Migrate(dbURL); err != nil {
		return nil, nil, err
	}

	pgxpool, err := GetPgxPool(dbURL)
	if err != nil {
		return nil, nil, err
	}

	qc := que.NewClient(pgxpool)

	return pgxpool, qc, err
}
