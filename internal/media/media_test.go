package media

import (
	"context"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeS3 struct {
	puts    []string
	deletes []string
}

func (f *fakeS3) PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, *input.Key)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func testStorage() (*Storage, *fakeS3) {
	fake := &fakeS3{}
	return &Storage{client: fake, bucket: "test"}, fake
}

func TestPutAvatarKeyedByUser(t *testing.T) {
	st, fake := testStorage()

	key, err := st.PutAvatar(context.Background(), 42, ".PNG", strings.NewReader("img"), "image/png")
	if err != nil {
		t.Fatalf("put avatar: %v", err)
	}
	if key != "avatars/42.png" {
		t.Errorf("key = %q, want avatars/42.png", key)
	}

	// Same user uploads again: same key, so at most one stored upload.
	key2, err := st.PutAvatar(context.Background(), 42, ".png", strings.NewReader("img2"), "image/png")
	if err != nil {
		t.Fatalf("put avatar: %v", err)
	}
	if key2 != key {
		t.Errorf("second upload key = %q, want same key %q", key2, key)
	}
	if len(fake.puts) != 2 {
		t.Errorf("got %d puts, want 2", len(fake.puts))
	}
}

func TestPutWishlistImageRandomKeys(t *testing.T) {
	st, _ := testStorage()

	a, err := st.PutWishlistImage(context.Background(), ".jpg", strings.NewReader("x"), "image/jpeg")
	if err != nil {
		t.Fatalf("put image: %v", err)
	}
	b, err := st.PutWishlistImage(context.Background(), ".jpg", strings.NewReader("y"), "image/jpeg")
	if err != nil {
		t.Fatalf("put image: %v", err)
	}
	if a == b {
		t.Error("wishlist image keys must not collide")
	}
	if !strings.HasPrefix(a, "wishlist/") || !strings.HasSuffix(a, ".jpg") {
		t.Errorf("unexpected key %q", a)
	}
}

func TestDeleteEmptyKeyNoop(t *testing.T) {
	st, fake := testStorage()
	if err := st.Delete(context.Background(), ""); err != nil {
		t.Fatalf("delete empty key: %v", err)
	}
	if len(fake.deletes) != 0 {
		t.Error("empty key should not hit the bucket")
	}
}

func TestUnconfiguredStorage(t *testing.T) {
	st := NewStorage(Config{})
	if st.Configured() {
		t.Error("no credentials means not configured")
	}
	_, err := st.PutAvatar(context.Background(), 1, ".png", strings.NewReader("x"), "image/png")
	if err != ErrNotConfigured {
		t.Errorf("got %v, want ErrNotConfigured", err)
	}
}

func TestValidImageExt(t *testing.T) {
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".JPG"} {
		if !ValidImageExt(ext) {
			t.Errorf("ValidImageExt(%q) = false, want true", ext)
		}
	}
	for _, ext := range []string{".gif", ".svg", "", "png"} {
		if ValidImageExt(ext) {
			t.Errorf("ValidImageExt(%q) = true, want false", ext)
		}
	}
}
