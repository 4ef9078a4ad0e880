// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package lifecycle

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
)

func TestPIDFile_Acquire(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("writes PID and holds lock", func(t *testing.T) {
		pidPath := filepath.Join(tmpDir, PIDFileName)
		m := NewPIDFile(pidPath)
		defer m.Release()

		if err := m.Acquire(1234); err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}
		if !m.Held() {
			t.Error("Held() = false after Acquire")
		}

		pid, err := m.Read()
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if pid != 1234 {
			t.Errorf("Read() = %d, want 1234", pid)
		}

		info, err := os.Stat(pidPath)
		if err != nil {
			t.Fatalf("Stat() error = %v", err)
		}
		if info.Mode().Perm() != 0o644 {
			t.Errorf("PID file mode = %o, want 0644", info.Mode().Perm())
		}
	})

	t.Run("reclaims stale file", func(t *testing.T) {
		pidPath := filepath.Join(tmpDir, "stale.pid")
		if err := os.WriteFile(pidPath, []byte("99999999999\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		m := NewPIDFile(pidPath)
		defer m.Release()
		if err := m.Acquire(42); err != nil {
			t.Fatalf("Acquire() over stale file error = %v", err)
		}

		data, err := os.ReadFile(pidPath)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "42\n" {
			t.Errorf("PID file content = %q, want %q", data, "42\n")
		}
	})

	t.Run("refuses symlink", func(t *testing.T) {
		target := filepath.Join(tmpDir, "victim")
		if err := os.WriteFile(target, []byte("keep"), 0o644); err != nil {
			t.Fatal(err)
		}
		link := filepath.Join(tmpDir, "link.pid")
		if err := os.Symlink(target, link); err != nil {
			t.Skipf("symlinks unsupported: %v", err)
		}

		m := NewPIDFile(link)
		if err := m.Acquire(1); err == nil {
			m.Release()
			t.Fatal("Acquire() through symlink succeeded, want error")
		}

		data, _ := os.ReadFile(target)
		if string(data) != "keep" {
			t.Errorf("symlink target modified: %q", data)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		m := NewPIDFile(filepath.Join(tmpDir, "missing", PIDFileName))
		if err := m.Acquire(1); err == nil {
			m.Release()
			t.Error("Acquire() in missing directory succeeded, want error")
		}
	})
}

func TestPIDFile_Read(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    int
		wantErr error
	}{
		{"valid", "1234\n", 1234, nil},
		{"whitespace", "  5678  \n", 5678, nil},
		{"non-numeric", "abc\n", 0, ErrInvalidPID},
		{"zero", "0\n", 0, ErrInvalidPID},
		{"negative", "-5\n", 0, ErrInvalidPID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pidPath := filepath.Join(tmpDir, tt.name+".pid")
			if err := os.WriteFile(pidPath, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}

			got, err := NewPIDFile(pidPath).Read()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Read() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Read() = %d, want %d", got, tt.want)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := NewPIDFile(filepath.Join(tmpDir, "none.pid")).Read()
		if !os.IsNotExist(err) {
			t.Errorf("Read() error = %v, want not-exist", err)
		}
	})
}

func TestPIDFile_Locking(t *testing.T) {
	tmpDir := t.TempDir()
	pidPath := filepath.Join(tmpDir, PIDFileName)

	m1 := NewPIDFile(pidPath)
	m2 := NewPIDFile(pidPath)
	defer m1.Release()

	if err := m1.Acquire(1111); err != nil {
		t.Fatalf("First Acquire() error = %v", err)
	}

	err := m2.Acquire(2222)
	if err == nil {
		m2.Release()
		t.Fatal("Second Acquire() succeeded, want error")
	}
	if !errors.Is(err, ErrPIDFileLocked) {
		t.Errorf("Second Acquire() error = %v, want ErrPIDFileLocked", err)
	}

	var running *AlreadyRunningError
	if !errors.As(err, &running) {
		t.Fatalf("expected *AlreadyRunningError, got %T", err)
	}
	if running.PID != 1111 {
		t.Errorf("AlreadyRunningError.PID = %d, want 1111", running.PID)
	}

	// The losing attempt must not disturb the holder's file.
	pid, err := m1.Read()
	if err != nil || pid != 1111 {
		t.Errorf("holder PID = %d, %v; want 1111", pid, err)
	}
}

func TestPIDFile_LockingReportsHolderCommand(t *testing.T) {
	tests := []struct {
		name        string
		holderPID   int
		wantCommand bool
	}{
		{name: "live holder", holderPID: os.Getpid(), wantCommand: true},
		{name: "holder pid no longer exists", holderPID: 999999, wantCommand: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pidPath := filepath.Join(t.TempDir(), PIDFileName)

			holder := NewPIDFile(pidPath)
			if err := holder.Acquire(tt.holderPID); err != nil {
				t.Fatalf("holder Acquire() error = %v", err)
			}
			defer holder.Release()

			err := NewPIDFile(pidPath).Acquire(2222)
			var running *AlreadyRunningError
			if !errors.As(err, &running) {
				t.Fatalf("second Acquire() error = %v, want *AlreadyRunningError", err)
			}

			if !tt.wantCommand {
				if running.Command != "" {
					t.Errorf("Command = %q, want empty", running.Command)
				}
				return
			}
			want := filepath.Base(os.Args[0])
			if !strings.Contains(running.Command, want) {
				t.Errorf("Command = %q, want it to contain %q", running.Command, want)
			}
			if !strings.Contains(err.Error(), running.Command) {
				t.Errorf("Error() = %q, want the holder command in it", err.Error())
			}
		})
	}
}

func TestPIDFile_Release(t *testing.T) {
	tmpDir := t.TempDir()
	pidPath := filepath.Join(tmpDir, PIDFileName)

	m := NewPIDFile(pidPath)
	if err := m.Acquire(1234); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := m.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Error("PID file still exists after Release")
	}
	if err := m.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}

	m2 := NewPIDFile(pidPath)
	defer m2.Release()
	if err := m2.Acquire(5678); err != nil {
		t.Errorf("Acquire() after Release() error = %v", err)
	}
}

func TestPIDFile_HoldsExclusiveLock(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), PIDFileName)
	m := NewPIDFile(pidPath)
	defer m.Release()

	if err := m.Acquire(1234); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	f, err := os.OpenFile(pidPath, os.O_RDWR, 0o600)
	if err != nil {
		t.Fatalf("Failed to open PID file: %v", err)
	}
	defer f.Close()

	err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err == nil {
		t.Error("Acquired lock on already-locked file")
		syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}
	if err != syscall.EWOULDBLOCK {
		t.Errorf("Flock error = %v, want EWOULDBLOCK", err)
	}
}

func TestPIDFile_DirectorySafety(t *testing.T) {
	unsafeDir := filepath.Join(t.TempDir(), "unsafe")
	if err := os.Mkdir(unsafeDir, 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.Chmod(unsafeDir, 0o777); err != nil {
		t.Fatalf("Failed to chmod directory: %v", err)
	}

	m := NewPIDFile(filepath.Join(unsafeDir, PIDFileName))
	err := m.Acquire(1234)
	if err == nil {
		m.Release()
		t.Fatal("Acquire() in world-writable directory succeeded, want error")
	}
	if !errors.Is(err, ErrUnsafeDirectory) {
		t.Errorf("Acquire() error = %v, want ErrUnsafeDirectory", err)
	}
}
