package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"dwhpipe/pkg/errors"
)

// ObjectLister is the slice of the S3 API the preflight needs.
type ObjectLister interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// PrefixReport describes one source prefix before loading.
type PrefixReport struct {
	Prefix  string
	Objects int32
}

// Preflight lists each source prefix so an unreachable bucket fails before
// any COPY runs. An empty prefix is reported, not treated as an error; the
// copy over it simply loads zero rows.
func (l *Loader) Preflight(ctx context.Context, lister ObjectLister) ([]PrefixReport, error) {
	var reports []PrefixReport
	for _, prefix := range []string{l.storage.LogData, l.storage.SongData} {
		bucket, key, err := splitS3Path(prefix)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCopySpecInvalid, "Invalid source prefix").
				WithContext("prefix", prefix)
		}

		out, err := lister.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket: aws.String(bucket),
			Prefix: aws.String(key),
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeStorageUnreachable, "Failed to list source prefix").
				WithContext("prefix", prefix).
				WithSuggestions(
					"Verify the bucket exists and the credentials can read it",
					"Check the configured region matches the bucket",
				)
		}

		reports = append(reports, PrefixReport{
			Prefix:  prefix,
			Objects: aws.ToInt32(out.KeyCount),
		})
	}
	return reports, nil
}

func splitS3Path(p string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(p, "s3://")
	if !ok || rest == "" {
		return "", "", fmt.Errorf("not an s3:// path: %q", p)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("missing bucket in %q", p)
	}
	return bucket, key, nil
}
