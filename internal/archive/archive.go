// Package archive keeps the last raw upstream responses so documents can be parsed
// again without another round trip.
package archive

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/PuerkitoBio/purell"
	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("casetrack-backend/internal/archive")

var ErrNotArchived = errors.New("archive: no archived response")

// excludedParams never become part of a key, they differ on every request.
var excludedParams = map[string]bool{
	"captcha": true,
}

type Options struct {
	// Dir is the badger directory, empty keeps everything in memory.
	Dir string
	// BaseURL resolves relative endpoints.
	BaseURL string
	// TTL bounds how long responses are kept, 0 keeps them forever.
	TTL time.Duration
}

type Archive struct {
	db      *badger.DB
	baseUrl *url.URL
	ttl     time.Duration
}

func Open(opts Options) (*Archive, error) {
	baseUrl, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	badgerOpts := badger.DefaultOptions(opts.Dir).WithLogger(nil)
	if opts.Dir == "" {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, err
	}
	return &Archive{db: db, baseUrl: baseUrl, ttl: opts.TTL}, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

// Key normalizes endpoint and params into the key a response is stored under.
func (a *Archive) Key(endpoint string, params map[string]string) (string, error) {
	full, err := a.baseUrl.Parse(endpoint)
	if err != nil {
		return "", err
	}
	query := full.Query()
	for k, v := range params {
		if excludedParams[k] {
			continue
		}
		query.Set(k, v)
	}
	full.RawQuery = query.Encode()

	// no trailing slash flag, endpoints are .php files and not directories
	normalized := purell.NormalizeURL(
		full,
		purell.FlagsSafe|
			purell.FlagRemoveDotSegments|
			purell.FlagSortQuery,
	)
	return "response:" + normalized, nil
}

func caseKey(cnr string) string {
	return "case:" + cnr
}

func (a *Archive) get(ctx context.Context, key string) ([]byte, error) {
	_, span := tracer.Start(ctx, "archive:get")
	defer span.End()
	span.SetAttributes(attribute.String("custom.archive_key", key))

	var out []byte
	err := a.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotArchived
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read item from badger")
		return nil, err
	}
	return out, nil
}

func (a *Archive) set(ctx context.Context, key string, body []byte) error {
	_, span := tracer.Start(ctx, "archive:set")
	defer span.End()
	span.SetAttributes(
		attribute.String("custom.archive_key", key),
		attribute.Int("custom.contentlength", len(body)),
	)

	err := a.db.Update(func(tx *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), body)
		if a.ttl > 0 {
			entry = entry.WithTTL(a.ttl)
		}
		return tx.SetEntry(entry)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to set badger item")
	}
	return err
}

// Put stores the response to a request.
func (a *Archive) Put(ctx context.Context, endpoint string, params map[string]string, body []byte) error {
	key, err := a.Key(endpoint, params)
	if err != nil {
		return err
	}
	return a.set(ctx, key, body)
}

func (a *Archive) Get(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	key, err := a.Key(endpoint, params)
	if err != nil {
		return nil, err
	}
	return a.get(ctx, key)
}

// PutCase stores the detail document of a case.
func (a *Archive) PutCase(ctx context.Context, cnr string, document []byte) error {
	return a.set(ctx, caseKey(cnr), document)
}

func (a *Archive) GetCase(ctx context.Context, cnr string) ([]byte, error) {
	return a.get(ctx, caseKey(cnr))
}
