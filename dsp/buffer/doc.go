// Package buffer provides a fixed-capacity sample ring used to hand audio
// between producers and consumers that run at different block sizes, without
// allocating on the processing path.
package buffer
