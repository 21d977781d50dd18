package models

import (
	"net/url"
	"path/filepath"
)

// ReplyFormatter turns local artifact paths into public image URLs.
type ReplyFormatter struct {
	root *url.URL
}

// NewReplyFormatter parses imageRootURL once; a malformed root is a configuration error.
func NewReplyFormatter(imageRootURL string) (*ReplyFormatter, error) {
	root, err := ParseImageRootURL(imageRootURL)
	if err != nil {
		return nil, err
	}
	return &ReplyFormatter{root: root}, nil
}

// Format joins the root URL with the base name of each artifact. Only base
// names are published so the local directory layout never leaks.
func (rf *ReplyFormatter) Format(imagePath, thumbnailPath string) ReplyMessage {
	return ReplyMessage{
		OriginalContentURL: rf.publicURL(imagePath),
		PreviewImageURL:    rf.publicURL(thumbnailPath),
	}
}

func (rf *ReplyFormatter) publicURL(path string) string {
	ref := &url.URL{Path: filepath.Base(path)}
	return rf.root.ResolveReference(ref).String()
}
