package dialog

const (
	msgSendMovieVideo    = "Kinoni video formatida yuboring."
	msgAskMovieCode      = "Kinoni qaysi kod bilan saqlaymiz?"
	msgAskPartCode       = "Qaysi kodga qism qo‘shmoqchisiz?"
	msgSendPartVideo     = "%s uchun qism videosini yuboring."
	msgAskPartLabel      = "%s uchun qism nomini yuboring (masalan: 2-qism)."
	msgAskDeleteCode     = "Qaysi kodli kinoni o‘chirmoqchisiz?"
	msgAskDeletePartCode = "Qaysi kodli kinoning qismini o‘chirmoqchisiz?"
	msgAskAddChannel     = "Kanal username yoki chat ID sini yuboring (masalan: @kanal yoki -1001234567890)."
	msgAskRemoveChannel  = "O‘chiriladigan kanal username yoki chat ID sini yuboring."

	msgSendVideoOnly = "Iltimos, video yuboring."
	msgBadCode       = "Kod noto‘g‘ri: bo‘sh joy va «:» bo‘lmasin, 32 belgidan oshmasin. Qaytadan yuboring."
	msgBadLabel      = "Qism nomi bo‘sh bo‘lmasin va 24 belgidan oshmasin. Qaytadan yuboring."
	msgBadChannel    = "Kanal noto‘g‘ri. @username yoki -100... ko‘rinishida yuboring."

	msgMovieSaved      = "✅ %s kodli kino saqlandi."
	msgPartSaved       = "✅ %s kodli kinoga «%s» qo‘shildi."
	msgDeleted         = "✅ %s kodli kino o‘chirildi."
	msgPartDeleted     = "✅ «%s» qismi o‘chirildi (%s)."
	msgLastPartDeleted = "✅ «%s» oxirgi qism edi, %s kodli kino butunlay o‘chirildi."
	msgChannelAdded    = "✅ %s majburiy kanallarga qo‘shildi."
	msgChannelRemoved  = "✅ %s majburiy kanallardan o‘chirildi."

	msgChoosePartToDelete = "%s: qaysi qismini o‘chirasiz?"
	msgNotFound           = "❌ %s topilmadi."
	msgAlreadyExists      = "❌ %s allaqachon mavjud. Katalog o‘zgarmadi."
	msgDuplicateLabel     = "❌ «%s» nomli qism allaqachon bor. Boshqa nom yuboring."
	msgInternal           = "⚠️ Ichki xatolik. Keyinroq urinib ko‘ring."

	msgFinishFirst     = "Avval joriy amalni tugating yoki «❌ Bekor qilish» ni bosing."
	msgCancelled       = "Amal bekor qilindi."
	msgNothingToCancel = "Bekor qilinadigan amal yo‘q."

	btnDeletePart = "🗑 %s"
	btnDeleteAll  = "📌 Hammasini o‘chirish"
)
