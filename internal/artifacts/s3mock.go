package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewS3Mock returns an *S3 whose client talks to an in-process fake
// transport. It implements just the object operations the Store interface
// needs so tests can exercise the s3 code path without a bucket.
func NewS3Mock() *S3 {
	transport := &s3FakeTransport{objects: make(map[string]s3FakeObject)}
	cfg, _ := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("TEST", "TEST", "")),
	)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: transport}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://s3.fake.local")
	})
	return &S3{client: client, bucket: "artifacts-test"}
}

type s3FakeObject struct {
	body        []byte
	contentType string
	rows        string
}

type s3FakeTransport struct {
	objects map[string]s3FakeObject
}

func (t *s3FakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Path style: /<bucket>/<key>.
	_, key, _ := strings.Cut(strings.TrimPrefix(req.URL.Path, "/"), "/")

	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		return t.listResponse(req.URL.Query().Get("prefix")), nil
	}

	switch req.Method {
	case http.MethodPut:
		raw, _ := io.ReadAll(req.Body)
		if body, ok := unchunk(raw); ok {
			raw = body
		}
		if _, exists := t.objects[key]; !exists {
			t.objects[key] = s3FakeObject{
				body:        raw,
				contentType: req.Header.Get("Content-Type"),
				rows:        req.Header.Get("X-Amz-Meta-Rows"),
			}
		}
		return fakeResponse(http.StatusOK, nil, http.Header{"ETag": {`"fake"`}}), nil
	case http.MethodHead:
		obj, ok := t.objects[key]
		if !ok {
			return fakeResponse(http.StatusNotFound, nil, http.Header{}), nil
		}
		return fakeResponse(http.StatusOK, nil, objectHeaders(obj)), nil
	case http.MethodGet:
		obj, ok := t.objects[key]
		if !ok {
			return fakeResponse(http.StatusNotFound, nil, http.Header{}), nil
		}
		return fakeResponse(http.StatusOK, obj.body, objectHeaders(obj)), nil
	case http.MethodDelete:
		delete(t.objects, key)
		return fakeResponse(http.StatusNoContent, nil, http.Header{}), nil
	}
	return fakeResponse(http.StatusNotImplemented, nil, http.Header{}), nil
}

func (t *s3FakeTransport) listResponse(prefix string) *http.Response {
	var keys []string
	for k := range t.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var xml strings.Builder
	xml.WriteString(`<?xml version="1.0"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
	for _, k := range keys {
		fmt.Fprintf(&xml, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>%s</LastModified></Contents>",
			k, len(t.objects[k].body), time.Now().UTC().Format("2006-01-02T15:04:05Z"))
	}
	xml.WriteString("</ListBucketResult>")
	return fakeResponse(http.StatusOK, []byte(xml.String()), http.Header{"Content-Type": {"application/xml"}})
}

func objectHeaders(obj s3FakeObject) http.Header {
	h := http.Header{
		"Content-Length": {strconv.Itoa(len(obj.body))},
		"ETag":           {`"fake"`},
		"Last-Modified":  {time.Now().UTC().Format(http.TimeFormat)},
	}
	if obj.contentType != "" {
		h.Set("Content-Type", obj.contentType)
	}
	if obj.rows != "" {
		h.Set("X-Amz-Meta-Rows", obj.rows)
	}
	return h
}

func fakeResponse(status int, body []byte, header http.Header) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Header:     header,
	}
}

// unchunk unwraps a single-chunk aws-chunked request body
// (<hex-size>[;ext]\r\n<data>\r\n0...). Plain bodies are left alone.
func unchunk(raw []byte) ([]byte, bool) {
	head, rest, ok := bytes.Cut(raw, []byte("\r\n"))
	if !ok {
		return nil, false
	}
	sizeHex, _, _ := strings.Cut(string(head), ";")
	size, err := strconv.ParseInt(sizeHex, 16, 64)
	if err != nil || size < 0 || int64(len(rest)) < size {
		return nil, false
	}
	data := rest[:size]
	tail := rest[size:]
	if !bytes.HasPrefix(tail, []byte("\r\n0")) {
		return nil, false
	}
	return data, true
}
