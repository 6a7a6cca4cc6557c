// Package archive uploads settled match records to S3-compatible storage
// (R2, MinIO, AWS).
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"inhouse-league/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rotisserie/eris"
)

// ObjectPutter is the slice of the S3 client the archive needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Options struct {
	Bucket          string
	Endpoint        string // empty means the AWS default
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

type S3Archive struct {
	client ObjectPutter
	bucket string
	prefix string
}

// New builds an S3 client from opts.
func New(ctx context.Context, opts Options) (*S3Archive, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, eris.Wrap(err, "load s3 config")
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithClient(client, opts.Bucket, opts.Prefix), nil
}

func NewWithClient(client ObjectPutter, bucket, prefix string) *S3Archive {
	return &S3Archive{client: client, bucket: bucket, prefix: prefix}
}

// Record is the archived document of one settlement.
type Record struct {
	MatchID       string                  `json:"match_id"`
	SettlementSeq int                     `json:"settlement_seq"`
	Map           string                  `json:"map"`
	Team1         []string                `json:"team1"`
	Team2         []string                `json:"team2"`
	Picks         map[string]string       `json:"picks"`
	WinnerSide    int                     `json:"winner_side"`
	Reports       models.ResultReports    `json:"reports"`
	StartedAt     *time.Time              `json:"started_at,omitempty"`
	FinishedAt    *time.Time              `json:"finished_at,omitempty"`
	Settlement    *models.SettlementDelta `json:"settlement"`
}

func RecordOf(m *models.Match) Record {
	return Record{
		MatchID:       m.ID,
		SettlementSeq: m.SettlementSeq,
		Map:           m.MapName,
		Team1:         m.Team1,
		Team2:         m.Team2,
		Picks:         m.Picks,
		WinnerSide:    m.WinnerSide,
		Reports:       m.Reports,
		StartedAt:     m.StartedAt,
		FinishedAt:    m.FinishedAt,
		Settlement:    m.Snapshot,
	}
}

// Key is the object key of a settlement. Each override gets its own object.
func (a *S3Archive) Key(m *models.Match) string {
	return path.Join(a.prefix, "matches", m.ID, fmt.Sprintf("settlement-%03d.json", m.SettlementSeq))
}

// PutMatch uploads the settlement record of a finished match and returns
// its key.
func (a *S3Archive) PutMatch(ctx context.Context, m *models.Match) (string, error) {
	if m.Status != models.MatchStatusFinished || m.Snapshot == nil {
		return "", eris.Errorf("match %s has no settlement to archive", m.ID)
	}
	body, err := json.Marshal(RecordOf(m))
	if err != nil {
		return "", eris.Wrap(err, "encode match record")
	}
	key := a.Key(m)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", eris.Wrapf(err, "upload %s", key)
	}
	return key, nil
}
