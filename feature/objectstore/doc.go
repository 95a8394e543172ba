// Package objectstore is the content store backed by an S3 compatible bucket.
//
// Layout:
//
//	{bucket}/{root}/{code}/{sha256}.pdf
//	{bucket}/{root}/{code}/.keep
//
// A category exists when its folder holds any object. With auto_create set, a
// missing folder is created by writing the .keep marker instead of failing
// resolution. Only .pdf objects are fingerprinted.
package objectstore
