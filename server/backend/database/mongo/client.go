/*
 * Copyright 2026 The Textsync Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package mongo implements database interfaces using MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	gotime "time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/lexdesk/textsync/api/types"
	"github.com/lexdesk/textsync/server/backend/database"
	"github.com/lexdesk/textsync/server/logging"
)

// Client is a client that connects to Mongo DB and reads or saves documents.
type Client struct {
	config *Config
	client *mongo.Client
}

// Dial creates an instance of Client and dials the given MongoDB.
func Dial(conf *Config) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.ParseConnectionTimeout())
	defer cancel()

	client, err := mongo.Connect(
		ctx,
		options.Client().ApplyURI(conf.ConnectionURI),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	ctxPing, cancelPing := context.WithTimeout(ctx, conf.ParsePingTimeout())
	defer cancelPing()

	if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	if err := ensureIndexes(ctx, client.Database(conf.Database)); err != nil {
		return nil, err
	}

	logging.DefaultLogger().Infof("MongoDB connected, URI: %s, DB: %s", conf.ConnectionURI, conf.Database)

	return &Client{
		config: conf,
		client: client,
	}, nil
}

// Close all resources of this client.
func (c *Client) Close() error {
	if err := c.client.Disconnect(context.Background()); err != nil {
		return fmt.Errorf("close mongo client: %w", err)
	}

	return nil
}

func (c *Client) collection(name string) *mongo.Collection {
	return c.client.Database(c.config.Database).Collection(name)
}

// CreateDocument creates a new document.
func (c *Client) CreateDocument(
	ctx context.Context,
	id, title, owner, content string,
) (*database.DocInfo, error) {
	if id == "" {
		id = types.NewID().String()
	}

	now := gotime.Now()
	info := &database.DocInfo{
		ID:        id,
		Title:     title,
		Owner:     owner,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := c.collection(ColDocuments).InsertOne(ctx, info); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("create document %s: %w", id, database.ErrDocumentAlreadyExists)
		}
		return nil, fmt.Errorf("create document %s: %w", id, err)
	}

	return info, nil
}

// LoadDocument returns the document of the given ID.
func (c *Client) LoadDocument(ctx context.Context, id string) (*database.DocInfo, error) {
	result := c.collection(ColDocuments).FindOne(ctx, bson.M{"_id": id})

	info := &database.DocInfo{}
	if err := result.Decode(info); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("find document %s: %w", id, database.ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("find document %s: %w", id, err)
	}

	return info, nil
}

// SaveDocument stores the content of the document at the given version. The
// filter only matches a stored version not newer than the given one, so an
// older save either matches nothing or collides on the ID and is dropped.
func (c *Client) SaveDocument(ctx context.Context, id, content string, version int64) error {
	now := gotime.Now()
	_, err := c.collection(ColDocuments).UpdateOne(ctx, bson.M{
		"_id":     id,
		"version": bson.M{"$lte": version},
	}, bson.M{
		"$set": bson.M{
			"content":    content,
			"version":    version,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"created_at": now,
		},
	}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("save document %s: %w", id, err)
	}

	return nil
}

// ListDocuments returns all documents ordered by ID.
func (c *Client) ListDocuments(ctx context.Context) ([]*database.DocInfo, error) {
	cursor, err := c.collection(ColDocuments).Find(
		ctx,
		bson.M{},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	var infos []*database.DocInfo
	if err := cursor.All(ctx, &infos); err != nil {
		return nil, fmt.Errorf("fetch documents: %w", err)
	}

	return infos, nil
}

// DeleteDocument deletes the document of the given ID and its comments.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	result, err := c.collection(ColDocuments).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("delete document %s: %w", id, database.ErrDocumentNotFound)
	}

	if _, err := c.collection(ColComments).DeleteMany(ctx, bson.M{"doc_id": id}); err != nil {
		return fmt.Errorf("delete comments of %s: %w", id, err)
	}

	return nil
}

// ListComments returns the comments of the given document ordered by ID.
func (c *Client) ListComments(ctx context.Context, docID string) ([]*database.CommentInfo, error) {
	cursor, err := c.collection(ColComments).Find(
		ctx,
		bson.M{"doc_id": docID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list comments of %s: %w", docID, err)
	}

	var infos []*database.CommentInfo
	if err := cursor.All(ctx, &infos); err != nil {
		return nil, fmt.Errorf("fetch comments of %s: %w", docID, err)
	}

	return infos, nil
}

// SaveComments stores the given comments of the document in one bulk write.
func (c *Client) SaveComments(ctx context.Context, docID string, comments []*database.CommentInfo) error {
	if len(comments) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(comments))
	for _, comment := range comments {
		info := comment.DeepCopy()
		info.DocumentID = docID
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": info.ID}).
			SetReplacement(info).
			SetUpsert(true))
	}

	if _, err := c.collection(ColComments).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("save comments of %s: %w", docID, err)
	}

	return nil
}

// DeleteComment deletes the given comment of the document.
func (c *Client) DeleteComment(ctx context.Context, docID, commentID string) error {
	result, err := c.collection(ColComments).DeleteOne(ctx, bson.M{
		"_id":    commentID,
		"doc_id": docID,
	})
	if err != nil {
		return fmt.Errorf("delete comment %s: %w", commentID, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("delete comment %s of %s: %w", commentID, docID, database.ErrCommentNotFound)
	}

	return nil
}
