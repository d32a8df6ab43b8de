// Package mirror copies Live snapshots to object storage so that a static
// front end can serve published content without the database.
package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/pagetree/internal/server/models"
)

// Mirror receives every Live change after it commits.
type Mirror interface {
	Put(ctx context.Context, page *models.Page) error
	Delete(ctx context.Context, nodeID string) error
}

// Nop is used when no object storage is configured.
type Nop struct{}

func (Nop) Put(context.Context, *models.Page) error { return nil }
func (Nop) Delete(context.Context, string) error    { return nil }

// ObjectAPI is the part of *s3.Client the mirror uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Options configure the S3 connection. The bucket and key prefix belong
// to the S3Mirror, see NewS3Mirror.
type Options struct {
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

// Document is the JSON stored per published node.
type Document struct {
	ID         string `json:"id"`
	ParentID   string `json:"parent_id,omitempty"`
	Type       string `json:"type"`
	Sort       int64  `json:"sort"`
	Version    int64  `json:"version"`
	Segment    string `json:"segment"`
	Title      string `json:"title"`
	MenuTitle  string `json:"menu_title,omitempty"`
	Content    string `json:"content"`
	ShowInMenu bool   `json:"show_in_menu"`
	ViewPolicy string `json:"view_policy"`
}

// S3Mirror writes one object per node under Prefix.
type S3Mirror struct {
	api    ObjectAPI
	bucket string
	prefix string
}

// NewS3Mirror stores objects in bucket. A non-empty prefix is treated as
// a directory.
func NewS3Mirror(api ObjectAPI, bucket, prefix string) *S3Mirror {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Mirror{api: api, bucket: bucket, prefix: prefix}
}

// NewS3Client builds a client for an S3-compatible endpoint with static
// credentials. Path-style addressing keeps MinIO happy.
func NewS3Client(ctx context.Context, o Options) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(o.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.BaseEndpoint != "" {
			so.BaseEndpoint = aws.String(o.BaseEndpoint)
		}
		so.UsePathStyle = true
	}), nil
}

func (m *S3Mirror) key(nodeID string) string {
	return m.prefix + nodeID + ".json"
}

func (m *S3Mirror) Put(ctx context.Context, p *models.Page) error {
	doc := Document{
		ID:         p.Node.ID,
		ParentID:   p.Node.ParentID,
		Type:       p.Node.Type,
		Sort:       p.Node.Sort,
		Version:    p.Snapshot.Version,
		Segment:    p.Snapshot.Segment,
		Title:      p.Snapshot.Title,
		MenuTitle:  p.Snapshot.MenuTitle,
		Content:    p.Snapshot.Content,
		ShowInMenu: p.Snapshot.ShowInMenu,
		ViewPolicy: string(p.Snapshot.ViewPolicy),
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	_, err = m.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(m.key(p.Node.ID)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", p.Node.ID, err)
	}
	return nil
}

func (m *S3Mirror) Delete(ctx context.Context, nodeID string) error {
	_, err := m.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(m.key(nodeID)),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", nodeID, err)
	}
	return nil
}
