// Package data turns a Japanese/Vietnamese CSV corpus into padded training batches.
//
// The pipeline is LoadCSV -> Tokenize -> Numericalize -> FilterLength -> BucketIterator.
// Batches are formed by token budget rather than by example count: examples are added to
// a batch while count*max(srcLen) and count*max(trgLen+2) both stay within the budget, so
// batches of short sentences hold more examples than batches of long ones.
package data
