// Package musicbrainz implements the remote catalog client used for
// candidate retrieval. It speaks the MusicBrainz ws/2 JSON surface and maps
// release payloads into the matcher's candidate model.
package musicbrainz
