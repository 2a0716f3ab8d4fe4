package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/meshsync/internal/client/iocli"
)

// newTestCli создает Cli с выводом в буфер
func newTestCli(eng Engine) (*Cli, *bytes.Buffer) {
	var out bytes.Buffer
	return New(eng, iocli.NewStream(strings.NewReader(""), &out)), &out
}

func writePassphraseFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "passphrase")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// TestReadPassphrase_FromEnvVar проверяет чтение фразы из переменной окружения
func TestReadPassphrase_FromEnvVar(t *testing.T) {
	t.Setenv(PassphraseEnv, "env-phrase")
	mockIO := &iocli.IOMock{}

	// Env var имеет приоритет над файлом
	passphrase, err := ReadPassphrase(mockIO, writePassphraseFile(t, "file-phrase"))

	require.NoError(t, err)
	assert.Equal(t, "env-phrase", passphrase)
	assert.Empty(t, mockIO.ReadPasswordCalls())
}

// TestReadPassphrase_FromFile проверяет чтение фразы из файла
func TestReadPassphrase_FromFile(t *testing.T) {
	t.Setenv(PassphraseEnv, "")
	mockIO := &iocli.IOMock{}

	passphrase, err := ReadPassphrase(mockIO, writePassphraseFile(t, "file-phrase\n"))

	require.NoError(t, err)
	assert.Equal(t, "file-phrase", passphrase)
	assert.Empty(t, mockIO.ReadPasswordCalls())
}

func TestReadPassphrase_EmptyFile(t *testing.T) {
	t.Setenv(PassphraseEnv, "")

	_, err := ReadPassphrase(&iocli.IOMock{}, writePassphraseFile(t, "  \n"))

	assert.ErrorIs(t, err, ErrEmptyPassphrase)
}

func TestReadPassphrase_MissingFile(t *testing.T) {
	t.Setenv(PassphraseEnv, "")

	_, err := ReadPassphrase(&iocli.IOMock{}, filepath.Join(t.TempDir(), "absent"))

	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// TestReadPassphrase_Prompt проверяет интерактивный ввод
func TestReadPassphrase_Prompt(t *testing.T) {
	t.Setenv(PassphraseEnv, "")

	tests := []struct {
		name    string
		input   string
		readErr error
		want    string
		wantErr error
	}{
		{name: "entered", input: "typed-phrase", want: "typed-phrase"},
		{name: "empty", input: "", wantErr: ErrEmptyPassphrase},
		{name: "read error", readErr: errors.New("no tty")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockIO := &iocli.IOMock{
				ReadPasswordFunc: func(prompt string) (string, error) {
					return tt.input, tt.readErr
				},
			}

			got, err := ReadPassphrase(mockIO, "")

			require.Len(t, mockIO.ReadPasswordCalls(), 1)
			assert.Equal(t, "Mesh passphrase: ", mockIO.ReadPasswordCalls()[0].Prompt)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.readErr != nil:
				assert.ErrorIs(t, err, tt.readErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestPrintUsage(t *testing.T) {
	var printed string
	mockIO := &iocli.IOMock{
		PrintfFunc: func(format string, a ...any) {
			printed = a[0].(string)
		},
	}

	PrintUsage(mockIO)

	assert.Contains(t, printed, "MeshSync Client")
	assert.Contains(t, printed, PassphraseEnv)
	for _, cmd := range []string{"run", "submit", "status", "topology", "conflicts", "resolve", "failed", "retry", "promote"} {
		assert.Contains(t, printed, "\n  "+cmd, "usage must list %s", cmd)
	}
}

func TestCli_Run_UnknownCommand(t *testing.T) {
	cli, _ := newTestCli(&EngineMock{})

	err := cli.Run(context.Background(), "register", nil)

	assert.ErrorIs(t, err, ErrUnknownCommand)
}
