// Package audiofile decodes WAV, AIFF, MP3 and Ogg Vorbis files into
// interleaved float32 clips and writes clips back as 16-bit PCM WAV or AIFF.
package audiofile
