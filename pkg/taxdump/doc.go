// Package taxdump acquires and parses the NCBI taxonomy dump (taxdmp.zip).
//
// # Pipeline
//
// Populating a database from a dump takes four steps:
//
//  1. [Fetcher.Fetch] copies taxdmp.zip and its .md5 companion into a work
//     directory from an HTTP(S) URL, an s3:// object or a local path
//  2. [Verify] checks the archive against the published MD5 sum
//  3. [Extract] unpacks the .dmp files
//  4. [Reader] streams the records of each dump file to callbacks
//
// [Cleanup] removes everything the first three steps wrote.
//
// # Dump format
//
// Every .dmp file holds one record per line. Fields are separated by "\t|\t"
// and lines end with "\t|". Fields are trimmed; empty trailing fields are
// kept so that column positions stay stable.
package taxdump
