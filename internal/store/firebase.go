package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"
)

// Firebase stores values in a Firebase Realtime Database. Keys map directly
// onto database paths.
type Firebase struct {
	client *db.Client
}

// NewFirebase connects to the Realtime Database at databaseURL. When
// credentialsFile is empty, application default credentials are used.
func NewFirebase(ctx context.Context, databaseURL, credentialsFile string) (*Firebase, error) {
	if databaseURL == "" {
		return nil, errors.New("firebase database URL is required")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{DatabaseURL: databaseURL}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase database client: %w", err)
	}

	return &Firebase{client: client}, nil
}

func (f *Firebase) Get(ctx context.Context, key string, dst any) (bool, error) {
	var raw json.RawMessage
	if err := f.client.NewRef(key).Get(ctx, &raw); err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if isNull(raw) {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (f *Firebase) Set(ctx context.Context, key string, v any) error {
	if err := f.client.NewRef(key).Set(ctx, v); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Create runs a transaction on key so concurrent writers cannot both win.
func (f *Firebase) Create(ctx context.Context, key string, v any) (bool, error) {
	var created bool
	err := f.client.NewRef(key).Transaction(ctx, func(node db.TransactionNode) (interface{}, error) {
		var current json.RawMessage
		if err := node.Unmarshal(&current); err != nil {
			return nil, err
		}
		if !isNull(current) {
			created = false
			return current, nil
		}
		created = true
		return v, nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to create %s: %w", key, err)
	}
	return created, nil
}

func (f *Firebase) Children(ctx context.Context, prefix string) (map[string]json.RawMessage, error) {
	var children map[string]json.RawMessage
	if err := f.client.NewRef(prefix).Get(ctx, &children); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", prefix, err)
	}
	if children == nil {
		children = make(map[string]json.RawMessage)
	}
	return children, nil
}

func (f *Firebase) Delete(ctx context.Context, key string) error {
	if err := f.client.NewRef(key).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Ping performs a shallow read of the database root.
func (f *Firebase) Ping(ctx context.Context) error {
	var keys map[string]bool
	if err := f.client.NewRef("/").GetShallow(ctx, &keys); err != nil {
		return fmt.Errorf("firebase ping failed: %w", err)
	}
	return nil
}

func (f *Firebase) Close() error { return nil }
