package main

import (
	"log"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"

	"github.com/ndlib/sword/history"
	"github.com/ndlib/sword/store"
)

// splitBucketPrefix will take a path and separate the bucket name from a prefix, if any.
// It will also make sure the prefix returned is either empty or ends with a slash "/".
//
// examples:
// 		"" -> ("", "")
//		"bucket" -> ("bucket", "")
//		"bucket/and/a/prefix" -> ("bucket", "and/a/prefix/")
func splitBucketPrefix(location string) (bucket, prefix string) {
	if location == "" {
		return
	}
	location = strings.TrimPrefix(location, "/")
	v := strings.SplitN(location, "/", 2)
	bucket = v[0]
	if len(v) > 1 {
		prefix = v[1]
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}
	return
}

// parselocation will create an appropriate store based on "location".
// In case of an error, nil is returned.
// If location is empty, a memory store is returned.
// It understands the special scheme "s3:".
func parselocation(location string) store.Store {
	if location == "" {
		return store.NewMemory()
	}
	u, err := url.Parse(location)
	if err != nil {
		log.Println("Problem parsing location", location, err)
		return nil
	}
	switch u.Scheme {
	case "", "file":
		return store.NewFileSystem(u.Path)
	case "s3":
		conf := &aws.Config{}
		if u.Host != "" {
			conf.Endpoint = aws.String(u.Host)
			conf.Region = aws.String("us-east-1")
			// disable SSL for local development
			if strings.Contains(u.Host, "localhost") {
				conf.DisableSSL = aws.Bool(true)
				conf.S3ForcePathStyle = aws.Bool(true)
			}
		}
		bucket, prefix := splitBucketPrefix(u.Path)
		if bucket == "" {
			log.Println("Error parsing location, no bucket name", location)
			return nil
		}
		return store.NewS3(bucket, prefix, session.New(conf))
	}
	log.Println("Problem parsing location", location)
	return nil
}

// openHistory returns the history database described by dial, or nil if
// dial is empty.
func openHistory(dial string) (history.DB, error) {
	switch {
	case dial == "":
		return nil, nil
	case strings.HasPrefix(dial, "mysql:"):
		return history.NewMysql(strings.TrimPrefix(dial, "mysql:"))
	}
	return history.NewQl(dial)
}
