package storage

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadHeader(t *testing.T, filename string, body []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(body)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["file"][0]
}

func TestNormalizeFilename(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	assert.Equal(t, "my_song_20260304_050607.mp3", normalizeFilename("my song!.MP3", now))
	assert.Equal(t, "track_20260304_050607.wav", normalizeFilename("???.wav", now))
	assert.Equal(t, "passwd_20260304_050607.mp3", normalizeFilename("../../etc/passwd.mp3", now))
}

func TestAudioContentType(t *testing.T) {
	ct, err := AudioContentType("a.mp3")
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", ct)

	_, err = AudioContentType("a.flac")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLocalStorageRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ls := NewLocalStorage(dir)

	location, err := ls.SaveFile(uploadHeader(t, "ezan free.mp3", []byte("ID3data")), "ezan free.mp3")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(location, dir))

	f, err := ls.Open(location)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "ID3data", string(data))
}

func TestLocalStorageRejects(t *testing.T) {
	dir := t.TempDir()
	ls := NewLocalStorage(dir)

	_, err := ls.SaveFile(uploadHeader(t, "notes.txt", []byte("x")), "notes.txt")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = ls.Open(filepath.Join(dir, "..", "elsewhere.mp3"))
	assert.Error(t, err)
}

func TestLocalStorageDelete(t *testing.T) {
	dir := t.TempDir()
	ls := NewLocalStorage(dir)

	location, err := ls.SaveFile(uploadHeader(t, "alarm.wav", []byte("RIFF")), "alarm.wav")
	require.NoError(t, err)
	require.NoError(t, ls.Delete(location))
	_, err = ls.Open(location)
	assert.Error(t, err)

	assert.NoError(t, ls.Delete(location), "deleting twice is fine")
	assert.Error(t, ls.Delete(filepath.Join(dir, "..", "elsewhere.mp3")))
}
