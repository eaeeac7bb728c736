package bot

const (
	msgAdminWelcome = "Admin panelga xush kelibsiz!"
	msgWelcome      = "Salom! Kino kodini yuboring va men sizga kinoni yoki qismlarni chiqaraman."
	msgAdminIdle    = "Amalni menyudan tanlang."
	msgSendCode     = "Kino kodini matn ko‘rinishida yuboring."

	msgNotFound    = "❌ Bunday kod topilmadi."
	msgChoosePart  = "🎬 %s: qaysi qismini tomosha qilasiz?"
	msgPartGone    = "❌ Bu qism endi mavjud emas."
	msgCaption     = "🎬 %s"
	msgPartCaption = "🎬 %s | %s"

	msgJoinFirst    = "❗ Avval quyidagi kanallarga obuna bo‘ling:"
	msgStillMissing = "❌ Hali ham barcha kanallarga obuna bo‘lmadingiz!"
	msgSubConfirmed = "✅ Obuna tasdiqlandi! Endi kino kodini yuboring."
	btnJoinChannel  = "📢 %s"
	btnCheckSub     = "✅ Tekshirish"

	msgStats      = "📊 Statistika\n\nKinolar: %d\nQismlar: %d\nFoydalanuvchilar: %s\nMajburiy kanallar: %d"
	msgNotAllowed = "⛔ Bu amal faqat adminlar uchun."
)
