// Demo walks through the typical lifecycle of a Strand client: load the
// configuration from the environment, build a client with a contextual
// logger, ensure a collection exists, create a document, and page through an
// index.
//
// It expects STRAND_SECRET (required), and optionally STRAND_ENDPOINT and
// STRAND_TIMEOUT, for example:
//
//	STRAND_SECRET=your-secret STRAND_ENDPOINT=https://db.strand-db.com go run .
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/strand-db/strand-client-go/strand"
	"github.com/strand-db/strand-client-go/strand/httpengine"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Demo failed: %v", err)
	}
}

func run() error {
	cfg, err := httpengine.LoadConfig("STRAND_")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	client, err := httpengine.NewFromConfig(cfg, httpengine.WithContextualLogger(logger))
	if err != nil {
		return fmt.Errorf("building client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Pin one correlation id for the whole demo session, so the exchanges
	// can be grouped in the logs.
	ctx = strand.ContextWithRequestID(ctx, "demo-session")

	if err = ensureUsersCollection(ctx, client); err != nil {
		return describeFailure(err)
	}

	userRef, err := createUser(ctx, client)
	if err != nil {
		return describeFailure(err)
	}

	logger.InfoContext(ctx, "created user", "ref", fmt.Sprintf("%+v", userRef))

	if err = listUsers(ctx, client); err != nil {
		return describeFailure(err)
	}

	return nil
}

// ensureUsersCollection creates the users collection and its covering index
// unless they are already present.
func ensureUsersCollection(ctx context.Context, client httpengine.Client) error {
	expr := strand.Do(
		strand.If(
			strand.Exists(strand.Collection("users")),
			true,
			strand.CreateCollection(strand.Obj{"name": "users"}),
		),
		strand.If(
			strand.Exists(strand.Index("all_users")),
			true,
			strand.CreateIndex(strand.Obj{"name": "all_users", "source": strand.Collection("users")}),
		),
	)

	_, err := query(ctx, client, expr)

	return err
}

// createUser stores a document and returns its reference.
func createUser(ctx context.Context, client httpengine.Client) (strand.RefV, error) {
	expr := strand.Create(strand.Collection("users"), strand.Obj{
		"data": strand.Obj{
			"name":   "Ada Lovelace",
			"joined": time.Now(),
		},
	})

	resource, err := query(ctx, client, expr)
	if err != nil {
		return strand.RefV{}, err
	}

	document, ok := resource.(strand.ObjectV)
	if !ok {
		return strand.RefV{}, fmt.Errorf("created document came back as %T", resource)
	}

	refValue, ok := document.Get("ref")
	if !ok {
		return strand.RefV{}, errors.New("created document carries no ref")
	}

	ref, ok := refValue.(strand.RefV)
	if !ok {
		return strand.RefV{}, fmt.Errorf("document ref came back as %T", refValue)
	}

	return ref, nil
}

// listUsers pages through the index and prints every document.
func listUsers(ctx context.Context, client httpengine.Client) error {
	expr := strand.Map(
		strand.Paginate(strand.Match(strand.Index("all_users")), strand.Size(5)),
		strand.Lambda([]string{"ref"}, strand.Get(strand.Var("ref"))),
	)

	resource, err := query(ctx, client, expr)
	if err != nil {
		return err
	}

	page, ok := resource.(strand.ObjectV)
	if !ok {
		return fmt.Errorf("page came back as %T", resource)
	}

	data, ok := page.Get("data")
	if !ok {
		return errors.New("page carries no data")
	}

	documents, ok := data.(strand.ArrayV)
	if !ok {
		return fmt.Errorf("page data came back as %T", data)
	}

	for i, document := range documents {
		fmt.Printf("user %d: %+v\n", i, document)
	}

	return nil
}

// query runs one exchange and folds service-reported failures into plain
// errors, which is all this demo needs.
func query(ctx context.Context, client httpengine.Client, expr strand.Expr) (strand.Value, error) {
	envelope, err := client.Query(ctx, expr)
	if err != nil {
		return nil, err
	}

	if envelope.HasErrors() {
		detail := envelope.Errors()[0]

		return nil, fmt.Errorf("service reported %q: %s", detail.Code, detail.Description)
	}

	return envelope.Resource()
}

// describeFailure names the failure class so the demo output stays readable.
func describeFailure(err error) error {
	switch {
	case errors.Is(err, strand.ErrMalformedExpression):
		return fmt.Errorf("query was refused before sending: %w", err)
	case errors.Is(err, strand.ErrRequestFailed):
		return fmt.Errorf("transport failed, is the endpoint reachable: %w", err)
	case errors.Is(err, strand.ErrMalformedResponse):
		return fmt.Errorf("response was not a service envelope: %w", err)
	default:
		return err
	}
}
